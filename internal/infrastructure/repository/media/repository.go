package media

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/database"
	"mediavault/internal/infrastructure/database/entities"
	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/utils/platformerrors"
)

// Connector opens (and migrates) a database handle. The repository calls it
// when it has no handle yet, so the service can start without a database.
type Connector func(ctx context.Context) (*gorm.DB, error)

// Repository handles media item persistence. Available is an explicit
// capability flag: it drops to false when the database cannot be reached and
// is restored by Probe.
type Repository struct {
	mu        sync.RWMutex
	db        *gorm.DB
	connect   Connector
	available atomic.Bool
	log       zerolog.Logger
	now       func() time.Time
}

// NewRepository wraps an open handle. A nil db starts the repository in degraded mode.
func NewRepository(db *gorm.DB, connect Connector, log zerolog.Logger) *Repository {
	r := &Repository{
		db:      db,
		connect: connect,
		log:     log.With().Str("component", "media-repository").Logger(),
		now:     time.Now,
	}
	r.setAvailable(db != nil)
	return r
}

// Available reports whether metadata operations currently reach the database.
func (r *Repository) Available() bool {
	return r.available.Load()
}

func (r *Repository) handle() *gorm.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

func (r *Repository) Insert(ctx context.Context, item domain.NewMediaItem) (*domain.MediaItem, error) {
	db := r.handle()
	if db == nil || !r.Available() {
		return nil, domain.ErrStoreUnavailable
	}

	entity := entities.MediaItem{
		ID:           uuid.NewString(),
		StoredName:   item.StoredName,
		OriginalName: item.OriginalName,
		MimeType:     item.MimeType,
		SizeBytes:    item.SizeBytes,
		Description:  item.Description,
		UploadedAt:   r.now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&entity).Error; err != nil {
		return nil, r.fail(ctx, err, "failed to create media item", "3d7e1a9c-5b2f-4e84-a6c0-9f1b8d2e7c45")
	}

	obj := mapEntity(entity)
	return &obj, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.MediaItem, error) {
	db := r.handle()
	if db == nil || !r.Available() {
		return []domain.MediaItem{}, nil
	}

	var rows []entities.MediaItem
	err := db.WithContext(ctx).
		Order("uploaded_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, r.fail(ctx, err, "failed to list media items", "b8f2c4e6-1a9d-4073-8e5b-c2d7f0a3e916")
	}

	items := make([]domain.MediaItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEntity(row))
	}
	return items, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.MediaItem, error) {
	db := r.handle()
	if db == nil || !r.Available() {
		return nil, domain.ErrStoreUnavailable
	}

	var entity entities.MediaItem
	err := db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return nil, r.fail(ctx, err, "failed to get media item by id", "e4a0b7d2-6c3f-4a18-9d5e-0b8c1f7a2d69")
	}

	obj := mapEntity(entity)
	return &obj, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) (bool, error) {
	db := r.handle()
	if db == nil || !r.Available() {
		return false, nil
	}

	result := db.WithContext(ctx).Where("id = ?", id).Delete(&entities.MediaItem{})
	if result.Error != nil {
		return false, r.fail(ctx, result.Error, "failed to delete media item", "7f1c9e3b-2d4a-4b60-85e7-a9d3c0f6b182")
	}
	return result.RowsAffected > 0, nil
}

// Probe connects when there is no handle yet, pings otherwise, and updates
// the capability flag from the outcome.
func (r *Repository) Probe(ctx context.Context) error {
	db := r.handle()
	if db == nil {
		if r.connect == nil {
			r.setAvailable(false)
			return domain.ErrStoreUnavailable
		}
		opened, err := r.connect(ctx)
		if err != nil {
			r.setAvailable(false)
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		r.mu.Lock()
		if r.db == nil {
			r.db = opened
		} else {
			_ = database.Close(opened)
		}
		db = r.db
		r.mu.Unlock()
	}

	if err := database.Ping(ctx, db); err != nil {
		r.setAvailable(false)
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	r.setAvailable(true)
	return nil
}

// Close releases the database handle, if any.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := database.Close(r.db)
	r.db = nil
	r.available.Store(false)
	return err
}

// Monitor probes the database every interval until ctx is done.
func (r *Repository) Monitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			if err := r.Probe(probeCtx); err != nil {
				r.log.Debug().Err(err).Msg("metadata store probe failed")
			}
			cancel()
		}
	}
}

func (r *Repository) setAvailable(available bool) {
	previous := r.available.Swap(available)
	metrics.SetMetadataAvailable(available)
	if previous == available {
		return
	}
	if available {
		r.log.Info().Msg("metadata store available")
		return
	}
	r.log.Warn().Msg("metadata store unavailable, running in degraded mode")
}

func (r *Repository) fail(ctx context.Context, err error, message, uuid string) error {
	if ctx.Err() == nil && isUnavailable(err) {
		r.setAvailable(false)
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, message, err, uuid)
}

// isUnavailable separates "cannot reach the database" from query errors.
// A canceled or expired caller context says nothing about the database.
func isUnavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception; 57P01-57P03: server shutting down or starting.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func mapEntity(entity entities.MediaItem) domain.MediaItem {
	return domain.MediaItem{
		ID:           entity.ID,
		StoredName:   entity.StoredName,
		OriginalName: entity.OriginalName,
		MimeType:     entity.MimeType,
		SizeBytes:    entity.SizeBytes,
		Description:  entity.Description,
		UploadedAt:   entity.UploadedAt,
	}
}
