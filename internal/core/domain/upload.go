package domain

import "time"

type UploadStatus string

const (
	UploadStatusReceived  UploadStatus = "received"
	UploadStatusAnalyzing UploadStatus = "analyzing"
	UploadStatusAnalyzed  UploadStatus = "analyzed"
	UploadStatusFailed    UploadStatus = "failed"
)

// Upload is the registry record of a stored source document. It never carries
// analysis output.
type Upload struct {
	ID              string           `json:"id"`
	Filename        string           `json:"filename"`
	MimeType        string           `json:"mime_type"`
	StoragePath     string           `json:"storage_path"`
	SizeBytes       int64            `json:"size_bytes"`
	DocumentType    DocumentType     `json:"document_type"`
	ProductCategory *ProductCategory `json:"product_category"`
	Status          UploadStatus     `json:"status"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
