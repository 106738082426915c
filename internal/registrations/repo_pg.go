package registrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const insertApplication = `
INSERT INTO registration_applications (
    id,
    application_ref,
    student_name,
    student_ic,
    date_of_birth,
    guardian_name,
    guardian_phone,
    guardian_email,
    guardian_ic,
    centre_id,
    centre_name,
    education_level,
    subsidy_category,
    notes,
    status,
    ip_address,
    submitted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

const insertDocument = `
INSERT INTO registration_documents (
    id,
    application_id,
    doc_type,
    file_name,
    mime_type,
    size_bytes,
    checksum,
    storage_provider,
    storage_key,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const selectApplication = `
SELECT id, application_ref, student_name, student_ic, date_of_birth, guardian_name, guardian_phone,
       guardian_email, guardian_ic, centre_id, centre_name, education_level, subsidy_category,
       notes, status, ip_address, submitted_at
FROM registration_applications`

// CreateWithDocuments inserts the application and its documents in one transaction.
func (r *PGRepo) CreateWithDocuments(ctx context.Context, app Application, docs []Document) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	in := app.Input
	if _, err = tx.ExecContext(
		ctx,
		insertApplication,
		app.ID,
		app.Ref,
		in.StudentName,
		in.IC,
		in.DateOfBirth,
		in.GuardianName,
		in.GuardianPhone,
		in.GuardianEmail,
		in.GuardianIC,
		in.CentreID,
		in.CentreName,
		in.EducationLevel,
		in.SubsidyCategory,
		nullString(in.Notes),
		string(app.Status),
		nullStringPtr(app.IPAddress),
		app.SubmittedAt,
	); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateReference
			return err
		}
		return fmt.Errorf("insert application: %w", err)
	}

	for _, doc := range docs {
		if _, err = tx.ExecContext(
			ctx,
			insertDocument,
			doc.ID,
			app.ID,
			string(doc.DocType),
			doc.FileName,
			doc.MimeType,
			doc.SizeBytes,
			doc.Checksum,
			doc.StorageProvider,
			doc.StorageKey,
			doc.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID fetches an application by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Application, error) {
	return r.getOne(ctx, selectApplication+"\nWHERE id = $1\nLIMIT 1", id)
}

// GetByRef fetches an application by reference.
func (r *PGRepo) GetByRef(ctx context.Context, ref string) (Application, error) {
	return r.getOne(ctx, selectApplication+"\nWHERE application_ref = $1\nLIMIT 1", ref)
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg string) (Application, error) {
	var app Application
	var status string
	var notes sql.NullString
	var ip sql.NullString
	in := &app.Input
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&app.ID,
		&app.Ref,
		&in.StudentName,
		&in.IC,
		&in.DateOfBirth,
		&in.GuardianName,
		&in.GuardianPhone,
		&in.GuardianEmail,
		&in.GuardianIC,
		&in.CentreID,
		&in.CentreName,
		&in.EducationLevel,
		&in.SubsidyCategory,
		&notes,
		&status,
		&ip,
		&app.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	app.Status = Status(status)
	if notes.Valid {
		in.Notes = notes.String
	}
	if ip.Valid {
		v := ip.String
		app.IPAddress = &v
	}
	return app, nil
}

// ListDocuments returns an application's documents oldest first.
func (r *PGRepo) ListDocuments(ctx context.Context, applicationID string) ([]Document, error) {
	const query = `
SELECT id, application_id, doc_type, file_name, mime_type, size_bytes, checksum, storage_provider, storage_key, created_at
FROM registration_documents
WHERE application_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var doc Document
		var docType string
		if err := rows.Scan(
			&doc.ID,
			&doc.ApplicationID,
			&docType,
			&doc.FileName,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.Checksum,
			&doc.StorageProvider,
			&doc.StorageKey,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		doc.DocType = DocumentType(docType)
		out = append(out, doc)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
