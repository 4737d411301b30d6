package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zero-wait/platform/internal/shared/errors"
)

// Postgres stores each document as a JSONB row in a single documents table,
// keyed by (collection, id). Field filters and ordering go through JSONB
// operators; RFC3339 timestamps order correctly as text.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Create(ctx context.Context, collection string, doc Document) (string, error) {
	doc, id := prepare(doc, time.Now())

	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode document")
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, data,
	)
	if err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("failed to create %s document", collection))
	}

	return id, nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound(collection, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to get %s document", collection))
	}

	return decode(data)
}

func (p *Postgres) Query(ctx context.Context, q Query) ([]Document, error) {
	sql := `SELECT data FROM documents WHERE collection = $1`
	args := []any{q.Collection}

	if q.Field != "" {
		sql += ` AND data->>$2 = $3`
		args = append(args, q.Field, fmt.Sprint(q.Value))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		sql += fmt.Sprintf(` ORDER BY data->>$%d %s`, len(args)+1, dir)
		args = append(args, q.OrderBy)
	}

	if q.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, q.Limit)
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to query %s", q.Collection))
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		doc, err := decode(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to read %s rows", q.Collection))
	}

	return docs, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields Document) error {
	fields = stampUpdate(fields, time.Now())

	patch, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "failed to encode update")
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		 WHERE collection = $1 AND id = $2`,
		collection, id, patch,
	)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update %s document", collection))
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound(collection, id)
	}

	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to delete %s document", collection))
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound(collection, id)
	}
	return nil
}

func (p *Postgres) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode document")
	}
	return doc, nil
}
