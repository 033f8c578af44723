package model

import "time"

// Document is the metadata row for an uploaded file. The bytes themselves live
// under the public storage root at RelativePath.
type Document struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"column:session_id;size:64;not null;index:idx_documents_session_created,priority:1" json:"session_id"`
	DocumentType string    `gorm:"column:document_type;not null" json:"document_type"`
	OriginalName string    `gorm:"column:original_name;not null" json:"original_name"`
	StoredName   string    `gorm:"column:stored_name;not null" json:"stored_name"`
	RelativePath string    `gorm:"column:relative_path;not null" json:"relative_path"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64     `gorm:"column:size_bytes" json:"size_bytes"`
	CreatedAt    time.Time `gorm:"index:idx_documents_session_created,priority:2" json:"created_at"`
}
