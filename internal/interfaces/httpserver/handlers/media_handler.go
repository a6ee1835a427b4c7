package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/interfaces/httpserver/responses"
	"mediavault/internal/utils/platformerrors"
)

const (
	descriptionField    = "description"
	maxDescriptionBytes = 64 << 10
)

// MediaHandler exposes media endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

// Upload streams a multipart upload into the ingestion pipeline. The file
// part is never buffered; a description field may come before or after it.
func (h *MediaHandler) Upload(c *gin.Context) {
	reader, err := c.Request.MultipartReader()
	if err != nil {
		metrics.RecordUpload("rejected", 0)
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeRejectedInput,
			"expected a multipart/form-data body", "0c9e4b7a-2f18-4d63-a5e1-8b3d7f2c6a90")
		return
	}

	var description string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordUpload("rejected", 0)
			responses.HandleNewError(c, h.log, platformerrors.ErrorTypeRejectedInput,
				"malformed multipart body", "e6a13f0d-9b4c-4728-8d5f-2c7b0e1a9f36")
			return
		}

		switch part.FormName() {
		case descriptionField:
			description = readField(part)
		case h.cfg.UploadField:
			h.ingest(c, reader, part, description)
			return
		}
	}

	metrics.RecordUpload("rejected", 0)
	responses.HandleNewError(c, h.log, platformerrors.ErrorTypeRejectedInput,
		"no media file uploaded in field "+h.cfg.UploadField, "b37d0e5c-64a1-4f9b-9c28-d1e8f4a2b705")
}

func (h *MediaHandler) ingest(c *gin.Context, reader *multipart.Reader, part *multipart.Part, description string) {
	defer part.Close()

	result, err := h.service.Ingest(c.Request.Context(), domain.IngestRequest{
		ContentType:  part.Header.Get("Content-Type"),
		OriginalName: part.FileName(),
		DeclaredSize: -1,
		Body:         part,
		Description:  description,
		Describe: func() string {
			return trailingDescription(reader, description)
		},
	})
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeRejectedInput) {
			metrics.RecordUpload("rejected", 0)
		} else {
			metrics.RecordUpload("failed", 0)
		}
		responses.HandleError(c, h.log, err, "upload failed")
		return
	}

	if result.ID == nil {
		metrics.RecordUpload("orphaned", result.SizeBytes)
	} else {
		metrics.RecordUpload("completed", result.SizeBytes)
	}
	c.JSON(http.StatusOK, responses.BuildUploadResponse(result))
}

// List returns all records newest first. It answers 200 with an empty list
// while the metadata store is unavailable.
func (h *MediaHandler) List(c *gin.Context) {
	items := h.service.List(c.Request.Context())
	c.JSON(http.StatusOK, responses.BuildListResponse(items, h.service.MetadataAvailable()))
}

func (h *MediaHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to get media item")
		return
	}
	c.JSON(http.StatusOK, responses.BuildMediaItemResponse(item))
}

func (h *MediaHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	result, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		switch {
		case platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound):
			metrics.RecordDeletion("not_found")
		default:
			metrics.RecordDeletion("failed")
		}
		responses.HandleError(c, h.log, err, "failed to delete media item")
		return
	}

	metrics.RecordDeletion("deleted")
	c.JSON(http.StatusOK, responses.BuildDeleteResponse(id, result))
}

// Serve streams a stored blob by name.
func (h *MediaHandler) Serve(c *gin.Context) {
	body, contentType, err := h.service.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		responses.HandleError(c, h.log, err, "failed to open media file")
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "public, max-age=31536000, immutable",
	})
}

// trailingDescription reads the parts that follow the file and returns the
// last description field, or fallback when there is none.
func trailingDescription(reader *multipart.Reader, fallback string) string {
	description := fallback
	for {
		part, err := reader.NextPart()
		if err != nil {
			return description
		}
		if part.FormName() == descriptionField {
			description = readField(part)
		}
		_ = part.Close()
	}
}

// readField reads a text field, keeping at most maxDescriptionBytes.
func readField(part *multipart.Part) string {
	data, err := io.ReadAll(io.LimitReader(part, maxDescriptionBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
