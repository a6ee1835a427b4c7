package entities

import "time"

// MediaItem represents the persisted media metadata.
type MediaItem struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	StoredName   string    `gorm:"type:varchar(96);uniqueIndex;not null"`
	OriginalName string    `gorm:"type:text;not null"`
	MimeType     string    `gorm:"type:varchar(255);not null"`
	SizeBytes    int64     `gorm:"not null"`
	Description  string    `gorm:"type:text;not null;default:''"`
	UploadedAt   time.Time `gorm:"not null;index:idx_media_items_uploaded_at,sort:desc"`
}

func (MediaItem) TableName() string {
	return "media_items"
}
