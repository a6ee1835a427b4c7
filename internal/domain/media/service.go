package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mediavault/internal/config"
	"mediavault/internal/utils/platformerrors"
)

// sniffLen matches the read limit mimetype uses for detection.
const sniffLen = 3072

// Service runs the ingestion pipeline and the deletion coordinator on top of
// a BlobStore and a MetadataStore.
type Service struct {
	cfg    *config.Config
	blobs  BlobStore
	meta   MetadataStore
	log    zerolog.Logger
	tracer trace.Tracer
}

func NewService(cfg *config.Config, blobs BlobStore, meta MetadataStore, log zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		blobs:  blobs,
		meta:   meta,
		log:    log.With().Str("component", "media-service").Logger(),
		tracer: otel.Tracer("mediavault/media"),
	}
}

// MetadataAvailable reports the metadata store capability flag.
func (s *Service) MetadataAvailable() bool {
	return s.meta.Available()
}

// BlobHealth checks that the blob backend accepts writes.
func (s *Service) BlobHealth(ctx context.Context) error {
	return s.blobs.Health(ctx)
}

// Ingest validates an upload, streams it into the blob store and records its
// metadata. A metadata failure does not fail the upload: the result carries a
// nil ID and the blob is kept.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "media.ingest",
		trace.WithAttributes(attribute.String("media.original_name", req.OriginalName)))
	defer span.End()

	mimeType, err := s.acceptContentType(ctx, req.ContentType)
	if err != nil {
		return nil, failSpan(span, err)
	}
	if req.Body == nil {
		return nil, failSpan(span, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRejectedInput,
			"no media file uploaded", nil, "5b0e9c3a-1f42-4d8e-9a61-3c7d2e8f4b10"))
	}
	if req.DeclaredSize > s.cfg.MaxMediaBytes {
		return nil, failSpan(span, s.tooLarge(ctx, nil))
	}

	var body io.Reader = &uploadReader{ctx: ctx, r: req.Body, remaining: s.cfg.MaxMediaBytes}
	if s.cfg.SniffContent {
		body, err = s.sniff(ctx, body)
		if err != nil {
			return nil, failSpan(span, s.classifyPutError(ctx, err))
		}
	}

	blob, err := s.blobs.Put(ctx, body, req.OriginalName)
	if err != nil {
		return nil, failSpan(span, s.classifyPutError(ctx, err))
	}
	span.SetAttributes(
		attribute.String("media.stored_name", blob.Name),
		attribute.Int64("media.size_bytes", blob.Size),
	)

	description := req.Description
	if req.Describe != nil {
		description = req.Describe()
	}

	result := &IngestResult{
		StoredName:   blob.Name,
		OriginalName: req.OriginalName,
		SizeBytes:    blob.Size,
	}

	if !s.meta.Available() {
		s.logOrphan(ctx, result, ErrStoreUnavailable)
		return result, nil
	}

	item, err := s.meta.Insert(ctx, NewMediaItem{
		StoredName:   blob.Name,
		OriginalName: req.OriginalName,
		MimeType:     mimeType,
		SizeBytes:    blob.Size,
		Description:  description,
	})
	if err != nil {
		s.logOrphan(ctx, result, err)
		return result, nil
	}

	id := item.ID
	result.ID = &id
	span.SetAttributes(attribute.String("media.id", id))

	s.log.Info().
		Str("id", id).
		Str("stored_name", blob.Name).
		Int64("bytes", blob.Size).
		Msg("upload stored")
	return result, nil
}

// List returns records newest first. It never fails: an unavailable or
// failing metadata store yields an empty list.
func (s *Service) List(ctx context.Context) []MediaItem {
	if !s.meta.Available() {
		return []MediaItem{}
	}
	items, err := s.meta.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("list media failed, returning empty result")
		return []MediaItem{}
	}
	if items == nil {
		return []MediaItem{}
	}
	return items
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id string) (*MediaItem, error) {
	if strings.TrimSpace(id) == "" || !s.meta.Available() {
		return nil, notFound(ctx, id)
	}

	item, err := s.meta.GetByID(ctx, id)
	switch {
	case err == nil:
		return item, nil
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrStoreUnavailable):
		return nil, notFound(ctx, id)
	default:
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to load media item", err, "0d6f8e2b-7c3a-4b95-8e1d-a2f46c9b3e57")
	}
}

// Delete removes the blob and then the record. A blob that is already gone
// does not stop the deletion; any other blob error leaves both sides intact.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "media.delete", trace.WithAttributes(attribute.String("media.id", id)))
	defer span.End()

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, failSpan(span, err)
	}

	removed, err := s.blobs.Delete(ctx, item.StoredName)
	if err != nil {
		return nil, failSpan(span, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDeletionFailed,
			"failed to delete media file", err, "8e3a1d7c-52b9-4f06-b8c4-19e7d0a6f2c3",
			map[string]any{"id": id, "stored_name": item.StoredName}))
	}
	if !removed {
		s.log.Warn().Str("id", id).Str("stored_name", item.StoredName).Msg("blob already absent, removing record")
	}

	deleted, err := s.meta.DeleteByID(ctx, id)
	if err != nil {
		return nil, failSpan(span, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDeletionFailed,
			"media file removed but record deletion failed", err, "c41b7f9e-0a2d-4e63-9b58-d7e2a3f80c16",
			map[string]any{"id": id, "stored_name": item.StoredName}))
	}

	return &DeleteResult{Deleted: deleted, BlobRemoved: removed}, nil
}

// Resolve opens a stored blob for serving and reports its detected content type.
func (s *Service) Resolve(ctx context.Context, storedName string) (io.ReadCloser, string, error) {
	reader, err := s.blobs.Resolve(ctx, storedName)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) || errors.Is(err, ErrInvalidStoredName) {
			return nil, "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
				"media file not found", err, "6a9c2e4f-3b1d-4f87-a0e5-7d8b1c9f2a64")
		}
		return nil, "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeStorageFailure,
			"failed to open media file", err, "f2d84b6a-9e1c-4a37-8b05-3c6e7a1d9f48")
	}

	buffered := bufio.NewReaderSize(reader, sniffLen)
	head, _ := buffered.Peek(sniffLen)
	contentType := mimetype.Detect(head).String()

	return &bufferedReadCloser{Reader: buffered, closer: reader}, contentType, nil
}

func (s *Service) acceptContentType(ctx context.Context, declared string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || !strings.HasPrefix(strings.ToLower(mediaType), s.cfg.AcceptedPrefix) {
		return "", platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRejectedInput,
			fmt.Sprintf("only %s* uploads are accepted", s.cfg.AcceptedPrefix), err, "2f7c9a1e-84d3-4b6a-9e02-5c1d8f3b7a96",
			map[string]any{"content_type": declared})
	}
	return strings.ToLower(mediaType), nil
}

// sniff inspects the first bytes of the body and rejects content that is
// recognisably outside the accepted class.
func (s *Service) sniff(ctx context.Context, body io.Reader) (io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !detected.Is("application/octet-stream") && !strings.HasPrefix(detected.String(), s.cfg.AcceptedPrefix) {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRejectedInput,
			fmt.Sprintf("file content is not %s*", s.cfg.AcceptedPrefix), nil, "93e1b0d4-6f2a-4c58-b7e9-0a4d3c8f1e25",
			map[string]any{"detected_type": detected.String()})
	}
	return io.MultiReader(bytes.NewReader(head), body), nil
}

func (s *Service) classifyPutError(ctx context.Context, err error) error {
	var readErr *bodyReadError
	switch {
	case platformerrors.GetPlatformError(err) != nil:
		return err
	case errors.Is(err, ErrUploadTooLarge):
		return s.tooLarge(ctx, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRejectedInput,
			"upload aborted before completion", err, "1e8d4a7b-c25f-4093-a6b1-f3e90d2c7b58")
	case errors.As(err, &readErr):
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRejectedInput,
			"failed to read upload body", err, "4c2a9f6e-1d7b-4e80-93c5-b8a0e6d1f374")
	default:
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeStorageFailure,
			"failed to store upload", err, "7b5e3c9a-0f81-4d26-8ae4-62c1d9b0f7e3")
	}
}

func (s *Service) tooLarge(ctx context.Context, err error) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRejectedInput,
		fmt.Sprintf("file too large: limit is %d bytes", s.cfg.MaxMediaBytes), err, "d9a64e1c-3b07-4f5d-82c8-e1f5a7b093d2",
		map[string]any{"limit_bytes": s.cfg.MaxMediaBytes})
}

func (s *Service) logOrphan(ctx context.Context, result *IngestResult, cause error) {
	event := s.log.Warn().
		Err(cause).
		Str("stored_name", result.StoredName).
		Str("original_name", result.OriginalName).
		Int64("bytes", result.SizeBytes)
	if requestID := platformerrors.RequestIDFromContext(ctx); requestID != "" {
		event = event.Str("request_id", requestID)
	}
	event.Msg("metadata insert failed, blob kept without record")
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		"media item not found", nil, "a57f0c3d-8e2b-4169-bd4a-0f9c6e2d1b83", map[string]any{"id": id})
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

type bufferedReadCloser struct {
	*bufio.Reader
	closer io.Closer
}

func (b *bufferedReadCloser) Close() error {
	return b.closer.Close()
}
