package registrations

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"registration-backend/internal/queue"
	"registration-backend/internal/shared/metrics"
	"registration-backend/internal/shared/storage/object"
	"registration-backend/internal/shared/telemetry"
	"registration-backend/internal/shared/util"
)

const (
	maxReferenceAttempts     = 3
	defaultUploadConcurrency = 4
	cleanupTimeout           = 30 * time.Second
)

var tracer = otel.Tracer("registration-backend/internal/registrations")

// CreateParams is the validated payload handed to the store.
type CreateParams struct {
	Input       SubmissionInput
	FilesByType FilesByType
	IPAddress   *string
}

// Service creates and reads registration applications.
type Service struct {
	Repo            Repo
	Store           object.ObjectStore
	StorageProvider string
	Refs            ReferenceGenerator
	// Events is optional; nil disables submission events.
	Events            queue.Client
	Rules             Rules
	UploadConcurrency int
	Now               func() time.Time
}

// CreateApplication uploads every file, then persists the application and its
// documents as one unit. Uploaded objects are removed if persisting fails.
func (s *Service) CreateApplication(ctx context.Context, params CreateParams) (app Application, docs []Document, err error) {
	ctx, span := tracer.Start(ctx, "registrations.CreateApplication")
	start := time.Now()
	defer func() {
		metrics.ObserveCreate(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := s.accept(params.FilesByType); err != nil {
		return Application{}, nil, err
	}

	now := s.now()
	app = Application{
		ID:          uuid.NewString(),
		Input:       params.Input,
		Status:      StatusSubmitted,
		IPAddress:   params.IPAddress,
		SubmittedAt: now,
	}
	span.SetAttributes(
		attribute.String("registration.application_id", app.ID),
		attribute.Int("registration.document_count", params.FilesByType.Count()),
	)

	docs, err = s.uploadAll(ctx, app.ID, params.FilesByType, now)
	if err != nil {
		s.discard(ctx, docs)
		return Application{}, nil, fmt.Errorf("store documents: %w", err)
	}

	for attempt := 1; ; attempt++ {
		app.Ref, err = s.Refs.Next(ctx, now)
		if err != nil {
			s.discard(ctx, docs)
			return Application{}, nil, err
		}
		err = s.Repo.CreateWithDocuments(ctx, app, docs)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateReference) && attempt < maxReferenceAttempts {
			telemetry.Warn("registration.reference_collision", map[string]any{
				"application_ref": app.Ref,
				"attempt":         attempt,
			})
			continue
		}
		s.discard(ctx, docs)
		return Application{}, nil, fmt.Errorf("create application: %w", err)
	}
	span.SetAttributes(attribute.String("registration.application_ref", app.Ref))

	for _, t := range AllDocumentTypes {
		metrics.AddDocumentsStored(string(t), len(params.FilesByType[t]))
	}
	telemetry.Info("registration.created", map[string]any{
		"application_id":  app.ID,
		"application_ref": app.Ref,
		"document_count":  len(docs),
		"request_id":      telemetry.RequestIDFrom(ctx),
	})

	s.publish(ctx, app, now)
	return app, docs, nil
}

// GetStatus returns the applicant-facing status of the application with ref.
func (s *Service) GetStatus(ctx context.Context, ref string) (ApplicationStatus, error) {
	app, err := s.Repo.GetByRef(ctx, ref)
	if err != nil {
		return ApplicationStatus{}, err
	}
	docs, err := s.Repo.ListDocuments(ctx, app.ID)
	if err != nil {
		return ApplicationStatus{}, err
	}
	return ApplicationStatus{
		Ref:           app.Ref,
		Status:        app.Status,
		SubmittedAt:   app.SubmittedAt,
		DocumentCount: len(docs),
	}, nil
}

// Get returns an application and its documents by id.
func (s *Service) Get(ctx context.Context, id string) (Application, []Document, error) {
	app, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Application{}, nil, err
	}
	docs, err := s.Repo.ListDocuments(ctx, id)
	if err != nil {
		return Application{}, nil, err
	}
	return app, docs, nil
}

// accept re-applies the file rules so direct callers get the same guarantees as intake.
func (s *Service) accept(files FilesByType) error {
	rules := s.Rules.withDefaults()
	for _, t := range AllDocumentTypes {
		for _, f := range files[t] {
			if f.Size > rules.MaxFileBytes {
				return &OversizedFileError{FileName: f.FileName, Limit: rules.MaxFileBytes}
			}
		}
	}
	if missing := rules.MissingDocs(files); len(missing) > 0 {
		return &MissingDocumentsError{Types: missing}
	}
	return nil
}

type uploadJob struct {
	docType DocumentType
	file    *UploadedFile
}

// uploadAll stores every file concurrently. On error the returned slice holds
// the documents that did reach the store.
func (s *Service) uploadAll(ctx context.Context, applicationID string, files FilesByType, now time.Time) ([]Document, error) {
	var jobs []uploadJob
	for _, t := range AllDocumentTypes {
		for _, f := range files[t] {
			if f == nil || f.Size == 0 {
				continue
			}
			jobs = append(jobs, uploadJob{docType: t, file: f})
		}
	}

	docs := make([]Document, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, job := range jobs {
		g.Go(func() error {
			doc, err := s.uploadOne(gctx, applicationID, job, now)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stored := make([]Document, 0, len(docs))
		for _, d := range docs {
			if d.StorageKey != "" {
				stored = append(stored, d)
			}
		}
		return stored, err
	}
	return docs, nil
}

func (s *Service) uploadOne(ctx context.Context, applicationID string, job uploadJob, now time.Time) (Document, error) {
	rc, err := job.file.Open()
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", job.file.FileName, err)
	}
	defer rc.Close()

	sum := util.NewChecksumReader(rc)
	namespace := path.Join("applications", applicationID, string(job.docType))
	key, size, mimeType, err := s.Store.Save(ctx, namespace, job.file.FileName, sum)
	if err != nil {
		return Document{}, fmt.Errorf("save %s: %w", job.file.FileName, err)
	}
	if mimeType == "" {
		mimeType = job.file.ContentType
	}

	return Document{
		ID:              uuid.NewString(),
		ApplicationID:   applicationID,
		DocType:         job.docType,
		FileName:        job.file.FileName,
		MimeType:        mimeType,
		SizeBytes:       size,
		Checksum:        sum.Sum(),
		StorageProvider: s.provider(),
		StorageKey:      key,
		CreatedAt:       now,
	}, nil
}

// discard deletes stored objects best-effort, outliving a cancelled request.
func (s *Service) discard(ctx context.Context, docs []Document) {
	if len(docs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, d := range docs {
		if err := s.Store.Delete(ctx, d.StorageKey); err != nil {
			telemetry.Error("registration.cleanup_failed", map[string]any{
				"storage_key": d.StorageKey,
				"error":       err.Error(),
			})
		}
	}
}

func (s *Service) publish(ctx context.Context, app Application, now time.Time) {
	if s.Events == nil {
		return
	}
	msg := queue.NewSubmitted(app.ID, app.Ref, telemetry.RequestIDFrom(ctx), now)
	if err := s.Events.Send(ctx, msg); err != nil {
		metrics.IncEventPublished("error")
		telemetry.Error("registration.event_publish_failed", map[string]any{
			"application_id": app.ID,
			"error":          err.Error(),
		})
		return
	}
	metrics.IncEventPublished("ok")
}

func (s *Service) concurrency() int {
	if s.UploadConcurrency > 0 {
		return s.UploadConcurrency
	}
	return defaultUploadConcurrency
}

func (s *Service) provider() string {
	if s.StorageProvider != "" {
		return s.StorageProvider
	}
	return "local"
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
