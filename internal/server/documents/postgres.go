package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/dbx"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepository stores documents in a jsonb column.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects with the pgx driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (r *PostgresRepository) List(ctx context.Context, collection string) ([]*Document, error) {
	query := `SELECT id, collection, data, created_at, updated_at FROM documents
		WHERE collection = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (*Document, error) {
	return r.get(ctx, r.db, collection, id, false)
}

func (r *PostgresRepository) Insert(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	query := `INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, doc.Collection, doc.ID, data, doc.CreatedAt, doc.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Modify locks the row for the duration of fn so concurrent patches on
// several replicas serialise.
func (r *PostgresRepository) Modify(ctx context.Context, collection, id string, fn func(*Document) error) (*Document, error) {
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) (*Document, error) {
		doc, err := r.get(ctx, tx, collection, id, true)
		if err != nil {
			return nil, err
		}
		if err := fn(doc); err != nil {
			return nil, err
		}

		data, err := json.Marshal(doc.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}

		query := `UPDATE documents SET data = $3, updated_at = $4 WHERE collection = $1 AND id = $2`
		if _, err := tx.ExecContext(ctx, query, collection, id, data, doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return doc, nil
	})
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, db dbx.DBTX, collection, id string, forUpdate bool) (*Document, error) {
	query := `SELECT id, collection, data, created_at, updated_at FROM documents
		WHERE collection = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	doc, err := scanDocument(db.QueryRowContext(ctx, query, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return doc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*Document, error) {
	var (
		doc Document
		raw []byte
	)
	if err := s.Scan(&doc.ID, &doc.Collection, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Data = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}
