package library

import (
	"fmt"
	"time"
)

// Author is a book container.
type Author struct {
	ID            int64
	Name          string
	OpenLibraryID *string
	RootPath      string
	AddedAt       time.Time
}

func addAuthor(q querier, a *Author) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO authors (name, openlibrary_id, root_path, added_at)
		VALUES (?, ?, ?, ?)`,
		a.Name, a.OpenLibraryID, a.RootPath, now,
	)
	if err != nil {
		return fmt.Errorf("insert author: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	a.AddedAt = now
	return nil
}

// AddAuthor inserts a new author.
func (s *Store) AddAuthor(a *Author) error { return addAuthor(s.db, a) }

// AddAuthor inserts a new author within a transaction.
func (t *Tx) AddAuthor(a *Author) error { return addAuthor(t.tx, a) }

func getAuthor(q querier, id int64) (*Author, error) {
	a := &Author{}
	err := q.QueryRow(`SELECT id, name, openlibrary_id, root_path, added_at FROM authors WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.OpenLibraryID, &a.RootPath, &a.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, mapSQLiteError(err))
	}
	return a, nil
}

// GetAuthor retrieves an author by ID.
func (s *Store) GetAuthor(id int64) (*Author, error) { return getAuthor(s.db, id) }

// GetAuthor retrieves an author by ID within a transaction.
func (t *Tx) GetAuthor(id int64) (*Author, error) { return getAuthor(t.tx, id) }

func listAuthors(q querier, f AuthorFilter) ([]*Author, error) {
	query := "SELECT id, name, openlibrary_id, root_path, added_at FROM authors"
	var args []any
	if f.Name != nil {
		query += " WHERE name = ?"
		args = append(args, *f.Name)
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Author
	for rows.Next() {
		a := &Author{}
		if err := rows.Scan(&a.ID, &a.Name, &a.OpenLibraryID, &a.RootPath, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// ListAuthors returns authors matching the filter.
func (s *Store) ListAuthors(f AuthorFilter) ([]*Author, error) { return listAuthors(s.db, f) }

// ListAuthors returns authors matching the filter within a transaction.
func (t *Tx) ListAuthors(f AuthorFilter) ([]*Author, error) { return listAuthors(t.tx, f) }

func deleteAuthor(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM authors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete author %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteAuthor removes an author (and cascading books) by ID. Idempotent.
func (s *Store) DeleteAuthor(id int64) error { return deleteAuthor(s.db, id) }

// DeleteAuthor removes an author by ID within a transaction.
func (t *Tx) DeleteAuthor(id int64) error { return deleteAuthor(t.tx, id) }
