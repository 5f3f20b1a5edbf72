package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-paystack-sync/internal/mapping"

	"github.com/google/uuid"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_paystack_id_idx ON documents (collection, (data->>'paystackID'));
`

// PostgresStore keeps every collection in one jsonb table. Filters use @> containment.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]Document, error) {
	where, args, err := s.where(collection, filter)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, data, created_at, updated_at FROM documents WHERE " + where + " ORDER BY created_at"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2",
		collection, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) Create(ctx context.Context, collection string, data Document) (Document, error) {
	id := uuid.NewString()
	payload, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3) RETURNING id, data, created_at, updated_at",
		collection, id, payload)
	return scanDocument(row)
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data Document) (Document, error) {
	payload, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING id, data, created_at, updated_at`,
		collection, id, payload)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	where, args, err := s.where(collection, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM documents WHERE "+where, args...).Scan(&n)
	return n, err
}

func (s *PostgresStore) where(collection string, filter map[string]any) (string, []any, error) {
	clauses := []string{"collection = $1"}
	args := []any{collection}

	rest := make(map[string]any, len(filter))
	for k, v := range filter {
		if k == FieldID {
			args = append(args, fmt.Sprint(v))
			clauses = append(clauses, fmt.Sprintf("id = $%d", len(args)))
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		contains, err := json.Marshal(mapping.Deepen(rest))
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		args = append(args, string(contains))
		clauses = append(clauses, fmt.Sprintf("data @> $%d::jsonb", len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		id        string
		raw       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc[FieldID] = id
	doc[FieldCreatedAt] = createdAt.UTC()
	doc[FieldUpdatedAt] = updatedAt.UTC()
	return doc, nil
}

func encodeData(data Document) (string, error) {
	clean := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		clean[k] = v
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}
