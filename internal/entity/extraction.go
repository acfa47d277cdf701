package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

// ExtractionRecord is a stored extraction run for data transfer between layers.
type ExtractionRecord struct {
	ID          uuid.UUID           `json:"id"`
	DocumentID  string              `json:"document_id"`
	ProfileID   string              `json:"profile_id"`
	FileName    string              `json:"file_name,omitempty"`
	ContentHash string              `json:"content_hash,omitempty"`
	Status      constants.RunStatus `json:"status"`
	Result      *Result             `json:"result,omitempty"`
	Error       *string             `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewExtractionRecord starts a PENDING record.
func NewExtractionRecord(documentID, profileID, fileName, contentHash string, now time.Time) *ExtractionRecord {
	return &ExtractionRecord{
		ID:          uuid.New(),
		DocumentID:  documentID,
		ProfileID:   profileID,
		FileName:    fileName,
		ContentHash: contentHash,
		Status:      constants.RunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Document is an ingested document ready for extraction.
type Document struct {
	ID          string
	FileName    string
	SourceType  string // constants.TEXT | constants.PDF
	ContentHash string // hex sha-256 of the raw bytes
	Text        string
	Pages       int
}
