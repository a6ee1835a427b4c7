package responses

import (
	"time"

	"mediavault/internal/domain/media"
)

// UploadResponse is returned for every stored upload. ID is null when the
// metadata record could not be written.
type UploadResponse struct {
	ID           *string `json:"id"`
	StoredName   string  `json:"stored_name"`
	OriginalName string  `json:"original_name"`
	SizeBytes    int64   `json:"size_bytes"`
	URL          string  `json:"url"`
}

// BuildUploadResponse creates the response from the ingestion result
func BuildUploadResponse(result *media.IngestResult) *UploadResponse {
	return &UploadResponse{
		ID:           result.ID,
		StoredName:   result.StoredName,
		OriginalName: result.OriginalName,
		SizeBytes:    result.SizeBytes,
		URL:          BlobURL(result.StoredName),
	}
}

// MediaItemResponse is one metadata record as exposed over HTTP
type MediaItemResponse struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Description  string    `json:"description"`
	UploadedAt   time.Time `json:"uploaded_at"`
	URL          string    `json:"url"`
}

func BuildMediaItemResponse(item *media.MediaItem) *MediaItemResponse {
	return &MediaItemResponse{
		ID:           item.ID,
		StoredName:   item.StoredName,
		OriginalName: item.OriginalName,
		MimeType:     item.MimeType,
		SizeBytes:    item.SizeBytes,
		Description:  item.Description,
		UploadedAt:   item.UploadedAt,
		URL:          BlobURL(item.StoredName),
	}
}

// ListResponse wraps the records, newest first
type ListResponse struct {
	Data              []*MediaItemResponse `json:"data"`
	MetadataAvailable bool                 `json:"metadata_available"`
}

func BuildListResponse(items []media.MediaItem, metadataAvailable bool) *ListResponse {
	data := make([]*MediaItemResponse, 0, len(items))
	for i := range items {
		data = append(data, BuildMediaItemResponse(&items[i]))
	}
	return &ListResponse{Data: data, MetadataAvailable: metadataAvailable}
}

// DeleteResponse reports a completed deletion
type DeleteResponse struct {
	ID          string `json:"id"`
	Deleted     bool   `json:"deleted"`
	BlobRemoved bool   `json:"blob_removed"`
}

func BuildDeleteResponse(id string, result *media.DeleteResult) *DeleteResponse {
	return &DeleteResponse{
		ID:          id,
		Deleted:     result.Deleted,
		BlobRemoved: result.BlobRemoved,
	}
}

// BlobURL is the public path a stored blob is served from.
func BlobURL(storedName string) string {
	return "/uploads/" + storedName
}
