package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrgo/internal/scheduler"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and control scheduled tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled tasks and their state",
	RunE:  runTasksList,
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update <task-type>",
	Short: "Change a task's interval and/or enabled flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksUpdate,
}

var tasksRunCmd = &cobra.Command{
	Use:   "run <task-type>",
	Short: "Trigger a task immediately and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRun,
}

func init() {
	tasksCmd.AddCommand(tasksListCmd, tasksUpdateCmd, tasksRunCmd)

	tasksUpdateCmd.Flags().Int("interval", 0, "New interval in minutes (0 keeps the current value)")
	tasksUpdateCmd.Flags().Bool("enabled", true, "Enable or disable the task")
}

func runTasksList(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Scheduler.EnsureDefaults(); err != nil {
		return fmt.Errorf("ensure defaults: %w", err)
	}

	statuses, err := a.Scheduler.List()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if jsonOutput {
		printJSON(statuses)
		return nil
	}

	fmt.Printf("%-20s %-9s %-8s %-20s %-20s %s\n", "TASK", "INTERVAL", "RUNNING", "LAST RUN", "NEXT RUN", "LAST DURATION")
	for _, s := range statuses {
		fmt.Printf("%-20s %-9s %-8v %-20s %-20s %s\n",
			s.Type,
			fmt.Sprintf("%dm", s.IntervalMinutes),
			s.IsRunning,
			formatTime(s.LastRunAt),
			formatTime(s.NextRunAt),
			time.Duration(s.LastDurationMs)*time.Millisecond,
		)
	}
	return nil
}

func runTasksUpdate(cmd *cobra.Command, args []string) error {
	taskType := scheduler.TaskType(args[0])

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Scheduler.EnsureDefaults(); err != nil {
		return fmt.Errorf("ensure defaults: %w", err)
	}

	interval, _ := cmd.Flags().GetInt("interval")
	enabled, _ := cmd.Flags().GetBool("enabled")

	current, err := a.Scheduler.List()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if interval == 0 {
		for _, s := range current {
			if s.Type == taskType {
				interval = s.IntervalMinutes
			}
		}
	}

	if err := a.Scheduler.Update(taskType, interval, enabled); err != nil {
		return fmt.Errorf("update %s: %w", taskType, err)
	}
	fmt.Printf("%s updated: interval=%dm enabled=%v\n", taskType, interval, enabled)
	return nil
}

func runTasksRun(cmd *cobra.Command, args []string) error {
	taskType := scheduler.TaskType(args[0])

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Scheduler.EnsureDefaults(); err != nil {
		return fmt.Errorf("ensure defaults: %w", err)
	}

	fmt.Printf("running %s...\n", taskType)
	if err := a.Scheduler.Trigger(context.Background(), taskType); err != nil {
		return fmt.Errorf("trigger %s: %w", taskType, err)
	}
	fmt.Printf("%s completed\n", taskType)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
