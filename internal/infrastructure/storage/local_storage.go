package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/metrics"
)

const localBackend = "local"

// LocalStorage keeps blobs as flat files in one directory.
type LocalStorage struct {
	basePath string
	gen      TokenGenerator
	log      zerolog.Logger
}

// NewLocalStorage creates a new local filesystem storage backend. The
// directory is created on the first write.
func NewLocalStorage(cfg *config.Config, gen TokenGenerator, log zerolog.Logger) (*LocalStorage, error) {
	if cfg.LocalStoragePath == "" {
		return nil, errors.New("local storage path is empty")
	}
	basePath, err := filepath.Abs(cfg.LocalStoragePath)
	if err != nil {
		return nil, fmt.Errorf("resolve local storage path: %w", err)
	}

	logger := log.With().Str("component", "local-storage").Logger()
	logger.Info().Str("path", basePath).Msg("local storage initialized")

	return &LocalStorage{
		basePath: basePath,
		gen:      gen,
		log:      logger,
	}, nil
}

// Put streams body into a temp file and renames it onto a freshly reserved
// name. On any failure, including cancellation, nothing is left behind.
func (l *LocalStorage) Put(ctx context.Context, body io.Reader, originalName string) (blob domain.StoredBlob, err error) {
	start := time.Now()
	defer func() { recordBlobOperation(localBackend, "put", start, err) }()

	if err := os.MkdirAll(l.basePath, 0o755); err != nil {
		return domain.StoredBlob{}, fmt.Errorf("create storage directory: %w", err)
	}

	name := newStoredName(l.gen, originalName)
	finalPath := filepath.Join(l.basePath, name)

	reservation, err := os.OpenFile(finalPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.StoredBlob{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		return domain.StoredBlob{}, fmt.Errorf("reserve blob name: %w", err)
	}
	_ = reservation.Close()

	tmp, err := os.CreateTemp(l.basePath, ".upload-*")
	if err != nil {
		_ = os.Remove(finalPath)
		return domain.StoredBlob{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		_ = os.Remove(finalPath)
	}()

	written, err := io.Copy(tmp, body)
	if err != nil {
		return domain.StoredBlob{}, fmt.Errorf("write blob: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.StoredBlob{}, err
	}
	if err := tmp.Sync(); err != nil {
		return domain.StoredBlob{}, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.StoredBlob{}, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return domain.StoredBlob{}, fmt.Errorf("commit blob: %w", err)
	}
	committed = true

	l.log.Debug().
		Str("stored_name", name).
		Int64("bytes", written).
		Msg("blob written")

	return domain.StoredBlob{Name: name, Size: written}, nil
}

// Delete removes a blob. A missing blob is reported as false, not as an error.
func (l *LocalStorage) Delete(ctx context.Context, storedName string) (removed bool, err error) {
	start := time.Now()
	defer func() { recordBlobOperation(localBackend, "delete", start, err) }()

	if err := validateStoredName(storedName); err != nil {
		return false, err
	}
	if err := os.Remove(filepath.Join(l.basePath, storedName)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove blob: %w", err)
	}
	return true, nil
}

// Resolve opens a blob for reading.
func (l *LocalStorage) Resolve(ctx context.Context, storedName string) (io.ReadCloser, error) {
	if err := validateStoredName(storedName); err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(l.basePath, storedName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, storedName)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, storedName)
	}
	return file, nil
}

// Health checks if the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	if err := os.MkdirAll(l.basePath, 0o755); err != nil {
		return fmt.Errorf("storage directory not available: %w", err)
	}

	probe, err := os.CreateTemp(l.basePath, ".health-*")
	if err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return nil
}

func recordBlobOperation(backend, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordBlobOperation(backend, operation, status, time.Since(start).Seconds())
}
