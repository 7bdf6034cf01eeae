package library

import (
	"fmt"
	"time"
)

// Book is a wanted or owned title by an Author.
type Book struct {
	ID        int64
	AuthorID  int64
	Title     string
	Requested bool
	HasFile   bool
	RootPath  string
	AddedAt   time.Time
}

func addBook(q querier, b *Book) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO books (author_id, title, requested, has_file, root_path, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.AuthorID, b.Title, b.Requested, b.HasFile, b.RootPath, now,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	b.ID = id
	b.AddedAt = now
	return nil
}

// AddBook inserts a new book.
func (s *Store) AddBook(b *Book) error { return addBook(s.db, b) }

// AddBook inserts a new book within a transaction.
func (t *Tx) AddBook(b *Book) error { return addBook(t.tx, b) }

func getBook(q querier, id int64) (*Book, error) {
	b := &Book{}
	err := q.QueryRow(`SELECT id, author_id, title, requested, has_file, root_path, added_at FROM books WHERE id = ?`, id).
		Scan(&b.ID, &b.AuthorID, &b.Title, &b.Requested, &b.HasFile, &b.RootPath, &b.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, mapSQLiteError(err))
	}
	return b, nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(id int64) (*Book, error) { return getBook(s.db, id) }

// GetBook retrieves a book by ID within a transaction.
func (t *Tx) GetBook(id int64) (*Book, error) { return getBook(t.tx, id) }

func listBooks(q querier, f BookFilter) ([]*Book, error) {
	query := "SELECT id, author_id, title, requested, has_file, root_path, added_at FROM books"
	var conditions []string
	var args []any
	if f.AuthorID != nil {
		conditions = append(conditions, "author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if f.Requested != nil {
		conditions = append(conditions, "requested = ?")
		args = append(args, *f.Requested)
	}
	if f.HasFile != nil {
		conditions = append(conditions, "has_file = ?")
		args = append(args, *f.HasFile)
	}
	if len(conditions) > 0 {
		query += " WHERE "
		for i, c := range conditions {
			if i > 0 {
				query += " AND "
			}
			query += c
		}
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Book
	for rows.Next() {
		b := &Book{}
		if err := rows.Scan(&b.ID, &b.AuthorID, &b.Title, &b.Requested, &b.HasFile, &b.RootPath, &b.AddedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// ListBooks returns books matching the filter.
func (s *Store) ListBooks(f BookFilter) ([]*Book, error) { return listBooks(s.db, f) }

// ListBooks returns books matching the filter within a transaction.
func (t *Tx) ListBooks(f BookFilter) ([]*Book, error) { return listBooks(t.tx, f) }

func updateBook(q querier, b *Book) error {
	result, err := q.Exec(`UPDATE books SET author_id = ?, title = ?, requested = ?, has_file = ?, root_path = ? WHERE id = ?`,
		b.AuthorID, b.Title, b.Requested, b.HasFile, b.RootPath, b.ID)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update book %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// UpdateBook updates an existing book. Returns ErrNotFound if absent.
func (s *Store) UpdateBook(b *Book) error { return updateBook(s.db, b) }

// UpdateBook updates an existing book within a transaction.
func (t *Tx) UpdateBook(b *Book) error { return updateBook(t.tx, b) }
