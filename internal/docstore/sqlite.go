package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite stores each document as a JSON body in a single table and pushes
// filtering and ordering down via json_extract. It is the default backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	body TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLite) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if !validCollection(collection) {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
	where := []string{"collection = ?"}
	args := []any{collection}
	for _, f := range q.Filters {
		path, err := jsonPath(f.Field)
		if err != nil {
			return nil, err
		}
		if f.Values != nil {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Values)), ",")
			where = append(where, fmt.Sprintf("json_extract(body, %s) IN (%s)", path, placeholders))
			args = append(args, f.Values...)
			continue
		}
		where = append(where, fmt.Sprintf("json_extract(body, %s) = ?", path))
		args = append(args, f.Value)
	}
	stmt := "SELECT id, body FROM documents WHERE " + strings.Join(where, " AND ")
	if q.OrderBy != "" {
		path, err := jsonPath(q.OrderBy)
		if err != nil {
			return nil, err
		}
		stmt += fmt.Sprintf(" ORDER BY CAST(json_extract(body, %s) AS INTEGER) ASC, id ASC", path)
	} else {
		stmt += " ORDER BY id ASC"
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(body), &fields); err != nil {
			// malformed body degrades to an empty record, the mapper
			// fills in defaults
			fields = map[string]any{}
		}
		out = append(out, Document{ID: id, Fields: fields})
	}
	return out, rows.Err()
}

func (s *SQLite) Insert(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	if !validCollection(collection) {
		return Document{}, fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
	stamped := stampInsert(fields)
	id := newID(collection)
	body, err := json.Marshal(stamped)
	if err != nil {
		return Document{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, body) VALUES (?, ?, ?);`,
		id, collection, string(body))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: stamped}, nil
}

func (s *SQLite) Update(ctx context.Context, collection string, id string, fields map[string]any) error {
	if !validCollection(collection) {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE id = ? AND collection = ?;`, id, collection).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return err
	}
	merged := map[string]any{}
	if err := json.Unmarshal([]byte(body), &merged); err != nil {
		merged = map[string]any{}
	}
	for k, v := range stampUpdate(fields) {
		merged[k] = v
	}
	next, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE id = ? AND collection = ?;`,
		string(next), id, collection); err != nil {
		return err
	}
	return tx.Commit()
}

// jsonPath builds a '$.field' path literal, restricted so field names taken
// from code constants cannot break out of the string.
func jsonPath(field string) (string, error) {
	if !validField(field) {
		return "", fmt.Errorf("%w: bad field name %q", ErrInvalid, field)
	}
	return "'$." + field + "'", nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
