package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/pkg/logger_i"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDocumentStore struct {
	pool   *pgxpool.Pool
	logger *logger_i.Logger
}

func NewPostgresDocumentStore(ctx context.Context, connStr string) (*PostgresDocumentStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresDocumentStore{
		pool:   pool,
		logger: logger_i.NewLogger("PostgresDocumentStore"),
	}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresDocumentStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			division_id UUID,
			original_filename TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			file_type TEXT NOT NULL,
			status TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			uploaded_by TEXT,
			created_time TIMESTAMPTZ NOT NULL,
			updated_time TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (s *PostgresDocumentStore) Close() {
	s.pool.Close()
}

func (s *PostgresDocumentStore) SaveDocument(ctx context.Context, doc docModel.Document) error {
	query := `INSERT INTO documents (id, division_id, original_filename, storage_path, file_type, status, is_active, uploaded_by, created_time, updated_time)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			updated_time = EXCLUDED.updated_time
		`
	_, err := s.pool.Exec(ctx, query,
		doc.Id, doc.DivisionId, doc.OriginalFilename, doc.StoragePath, doc.FileType,
		string(doc.Status), doc.IsActive, doc.UploadedBy, doc.CreatedTime, doc.UpdatedTime,
	)
	return err
}

func (s *PostgresDocumentStore) GetDocument(ctx context.Context, id string) (docModel.Document, bool) {
	row := s.pool.QueryRow(ctx, `SELECT id, COALESCE(division_id::text,''), original_filename, storage_path, file_type, status, is_active, COALESCE(uploaded_by,''), created_time, updated_time
		FROM documents WHERE id = $1`, id)

	var doc docModel.Document
	var status string
	err := row.Scan(&doc.Id, &doc.DivisionId, &doc.OriginalFilename, &doc.StoragePath,
		&doc.FileType, &status, &doc.IsActive, &doc.UploadedBy, &doc.CreatedTime, &doc.UpdatedTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return doc, false
	}
	if err != nil {
		s.logger.Error("Error reading document", "document Id", id, "error", err)
		return doc, false
	}
	doc.Status = docModel.Status(status)
	return doc, true
}

func (s *PostgresDocumentStore) ListDocuments(ctx context.Context) ([]docModel.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, COALESCE(division_id::text,''), original_filename, storage_path, file_type, status, is_active, COALESCE(uploaded_by,''), created_time, updated_time
		FROM documents ORDER BY created_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []docModel.Document
	for rows.Next() {
		var doc docModel.Document
		var status string
		if err := rows.Scan(&doc.Id, &doc.DivisionId, &doc.OriginalFilename, &doc.StoragePath,
			&doc.FileType, &status, &doc.IsActive, &doc.UploadedBy, &doc.CreatedTime, &doc.UpdatedTime); err != nil {
			return nil, err
		}
		doc.Status = docModel.Status(status)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresDocumentStore) UpdateStatus(ctx context.Context, id string, status docModel.Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE documents SET status = $2, updated_time = $3 WHERE id = $1`,
		id, string(status), time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

func (s *PostgresDocumentStore) SetActive(ctx context.Context, id string, isActive bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE documents SET is_active = $2, updated_time = $3 WHERE id = $1`,
		id, isActive, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

func (s *PostgresDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}
