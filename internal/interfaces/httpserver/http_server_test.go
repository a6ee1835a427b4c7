package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/storage"
	"mediavault/internal/interfaces/httpserver"
	"mediavault/utils/mediaid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubStore struct {
	mu        sync.Mutex
	items     []domain.MediaItem
	available bool
}

func (s *stubStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *stubStore) Insert(ctx context.Context, item domain.NewMediaItem) (*domain.MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := domain.MediaItem{
		ID:           uuid.NewString(),
		StoredName:   item.StoredName,
		OriginalName: item.OriginalName,
		MimeType:     item.MimeType,
		SizeBytes:    item.SizeBytes,
		Description:  item.Description,
		UploadedAt:   time.Date(2024, 1, 1, 0, 0, len(s.items), 0, time.UTC),
	}
	s.items = append([]domain.MediaItem{record}, s.items...)
	return &record, nil
}

func (s *stubStore) List(ctx context.Context) ([]domain.MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MediaItem(nil), s.items...), nil
}

func (s *stubStore) GetByID(ctx context.Context, id string) (*domain.MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (s *stubStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type testServer struct {
	handler http.Handler
	store   *stubStore
	dir     string
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := &config.Config{
		ServiceName:      "media-api",
		Environment:      "test",
		StorageBackend:   "local",
		LocalStoragePath: t.TempDir(),
		MaxMediaBytes:    1 << 20,
		AcceptedPrefix:   "video/",
		UploadField:      "video",
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	blobs, err := storage.NewLocalStorage(cfg, mediaid.NewGenerator(), zerolog.Nop())
	require.NoError(t, err)
	store := &stubStore{available: true}
	service := domain.NewService(cfg, blobs, store, zerolog.Nop())

	return &testServer{
		handler: httpserver.New(cfg, zerolog.Nop(), service).Handler(),
		store:   store,
		dir:     cfg.LocalStoragePath,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) files(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	return len(entries)
}

type formPart struct {
	field       string
	filename    string
	contentType string
	body        []byte
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		disposition := fmt.Sprintf(`form-data; name=%q`, p.field)
		if p.filename != "" {
			disposition += fmt.Sprintf(`; filename=%q`, p.filename)
		}
		header.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = w.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/media", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestUploadRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	payload := []byte("clip bytes")

	rec := srv.do(multipartRequest(t,
		formPart{field: "video", filename: "clip.mp4", contentType: "video/mp4", body: payload},
		formPart{field: "description", body: []byte("test")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uploaded := decode(t, rec)
	id, ok := uploaded["id"].(string)
	require.True(t, ok, "id must be set")
	storedName := uploaded["stored_name"].(string)
	assert.Equal(t, "clip.mp4", uploaded["original_name"])
	assert.EqualValues(t, len(payload), uploaded["size_bytes"])
	assert.Equal(t, "/uploads/"+storedName, uploaded["url"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/v1/media", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	data := list["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, id, first["id"])
	assert.Equal(t, "test", first["description"])
	assert.Equal(t, true, list["metadata_available"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/uploads/"+storedName, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = srv.do(httptest.NewRequest(http.MethodDelete, "/v1/media/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["deleted"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/v1/media/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/uploads/"+storedName, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(httptest.NewRequest(http.MethodDelete, "/v1/media/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, srv.files(t))
}

func TestUploadLeadingDescription(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(multipartRequest(t,
		formPart{field: "description", body: []byte("  before the file  ")},
		formPart{field: "video", filename: "clip.webm", contentType: "video/webm", body: []byte("webm")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	items, err := srv.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "before the file", items[0].Description)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name   string
		limit  int64
		parts  []formPart
		status int
	}{
		{
			name:   "image content type",
			parts:  []formPart{{field: "video", filename: "photo.png", contentType: "image/png", body: []byte("\x89PNG")}},
			status: http.StatusBadRequest,
		},
		{
			name:   "over the ceiling",
			limit:  100,
			parts:  []formPart{{field: "video", filename: "big.mp4", contentType: "video/mp4", body: bytes.Repeat([]byte("x"), 101)}},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing file field",
			parts:  []formPart{{field: "description", body: []byte("only text")}},
			status: http.StatusBadRequest,
		},
		{
			name:   "wrong field name",
			parts:  []formPart{{field: "file", filename: "clip.mp4", contentType: "video/mp4", body: []byte("x")}},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(c *config.Config) {
				if tt.limit > 0 {
					c.MaxMediaBytes = tt.limit
				}
			})
			req := multipartRequest(t, tt.parts...)
			req.Header.Set("X-Request-Id", "req-"+tt.name)

			rec := srv.do(req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.Equal(t, "REJECTED_INPUT", body["code"])
			assert.NotEmpty(t, body["message"])
			assert.NotEmpty(t, body["reference"])
			assert.Equal(t, "req-"+tt.name, body["request_id"])
			assert.Equal(t, 0, srv.files(t))
			assert.Empty(t, srv.store.items)
		})
	}
}

func TestUploadRequiresMultipart(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/media", bytes.NewReader([]byte(`{"video":"x"}`)))
	req.Header.Set("Content-Type", "application/json")

	rec := srv.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REJECTED_INPUT", decode(t, rec)["code"])
}

func TestUploadWithMetadataUnavailable(t *testing.T) {
	srv := newTestServer(t)
	srv.store.available = false

	rec := srv.do(multipartRequest(t,
		formPart{field: "video", filename: "clip.mp4", contentType: "video/mp4", body: []byte("kept")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	id, present := body["id"]
	assert.True(t, present)
	assert.Nil(t, id)
	assert.Equal(t, 1, srv.files(t))

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/uploads/"+body["stored_name"].(string), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kept", rec.Body.String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/v1/media", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Empty(t, list["data"])
	assert.Equal(t, false, list["metadata_available"])
}

func TestServeRejectsTraversal(t *testing.T) {
	srv := newTestServer(t)

	for _, name := range []string{"..%2Fsecret", ".hidden", "UPPER.mp4"} {
		rec := srv.do(httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, true, body["metadata_available"])
	assert.Equal(t, "local", body["storage_backend"])

	srv.store.available = false
	rec = srv.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["metadata_available"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mediavault_media_api_metadata_available")
}
