package scheduler

import "context"

// RunnerFunc adapts a plain function to TaskRunner, mirroring the standard
// library's http.HandlerFunc idiom: most of this repo's task bodies are
// already one call into another component's own-guarded entry point
// (Manager.Monitor, Pipeline.Sync, Scanner.Scan, Searcher.Run), so a named
// type per task would just be boilerplate around a single method.
type RunnerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}
