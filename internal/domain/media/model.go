package media

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrStoreUnavailable is returned by a MetadataStore that cannot reach its backing store.
	ErrStoreUnavailable = errors.New("metadata store unavailable")
	// ErrRecordNotFound is returned by a MetadataStore lookup for an unknown id.
	ErrRecordNotFound = errors.New("media record not found")
	// ErrBlobNotFound is returned by a BlobStore when no blob exists under a name.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrUploadTooLarge is returned while streaming once the body passes the size ceiling.
	ErrUploadTooLarge = errors.New("upload exceeds size ceiling")
	// ErrInvalidStoredName is returned for names the BlobStore never generates.
	ErrInvalidStoredName = errors.New("invalid stored name")
)

// MediaItem is the metadata record for one stored upload.
type MediaItem struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Description  string    `json:"description"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// NewMediaItem holds the fields supplied to MetadataStore.Insert; the store
// assigns ID and UploadedAt.
type NewMediaItem struct {
	StoredName   string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Description  string
}

// StoredBlob describes a completed BlobStore.Put.
type StoredBlob struct {
	Name string
	Size int64
}

// IngestRequest is one upload as decoded by the transport.
type IngestRequest struct {
	ContentType  string
	OriginalName string
	// DeclaredSize is the size announced by the client, or -1 when unknown.
	DeclaredSize int64
	Body         io.Reader
	Description  string
	// Describe, when set, is called after the body has been consumed and
	// replaces Description. Multipart forms may send the description after the file.
	Describe func() string
}

// IngestResult is returned for every completed upload. ID is nil when the
// metadata record could not be written.
type IngestResult struct {
	StoredName   string  `json:"stored_name"`
	OriginalName string  `json:"original_name"`
	SizeBytes    int64   `json:"size_bytes"`
	ID           *string `json:"id"`
}

// DeleteResult reports the outcome of a deletion.
type DeleteResult struct {
	Deleted     bool `json:"deleted"`
	BlobRemoved bool `json:"blob_removed"`
}

// BlobStore persists upload bytes under generated names.
type BlobStore interface {
	Put(ctx context.Context, body io.Reader, originalName string) (StoredBlob, error)
	Delete(ctx context.Context, storedName string) (bool, error)
	Resolve(ctx context.Context, storedName string) (io.ReadCloser, error)
	Health(ctx context.Context) error
}

// MetadataStore records MediaItems. Available reports whether the backing
// store is currently usable; when false every call is a no-op.
type MetadataStore interface {
	Available() bool
	Insert(ctx context.Context, item NewMediaItem) (*MediaItem, error)
	List(ctx context.Context) ([]MediaItem, error)
	GetByID(ctx context.Context, id string) (*MediaItem, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}
