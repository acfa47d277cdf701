package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

// ExtractionRepository persists one extraction record per document.
type ExtractionRepository interface {
	// Save inserts the record or replaces the one stored for the same document.
	Save(ctx context.Context, rec *entity.ExtractionRecord) error
	Get(ctx context.Context, documentID string) (*entity.ExtractionRecord, error)
	// List returns records newest first; an empty profileID lists every profile.
	List(ctx context.Context, profileID string) ([]*entity.ExtractionRecord, error)
	Delete(ctx context.Context, documentID string) error
	Ping(ctx context.Context) error
	Close() error
}

// row is the column image of an ExtractionRecord.
type row struct {
	ID          string
	DocumentID  string
	ProfileID   string
	FileName    string
	ContentHash string
	Status      string
	Result      *string
	Error       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func toRow(rec *entity.ExtractionRecord) (row, error) {
	r := row{
		ID:          rec.ID.String(),
		DocumentID:  rec.DocumentID,
		ProfileID:   rec.ProfileID,
		FileName:    rec.FileName,
		ContentHash: rec.ContentHash,
		Status:      string(rec.Status),
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
	if rec.Result != nil {
		b, err := json.Marshal(rec.Result)
		if err != nil {
			return row{}, fmt.Errorf("marshal result: %w", err)
		}
		s := string(b)
		r.Result = &s
	}
	return r, nil
}

func (r row) record() (*entity.ExtractionRecord, error) {
	rec := &entity.ExtractionRecord{
		DocumentID:  r.DocumentID,
		ProfileID:   r.ProfileID,
		FileName:    r.FileName,
		ContentHash: r.ContentHash,
		Status:      constants.RunStatus(r.Status),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.DocumentID, err)
	}
	rec.ID = id
	if r.Result != nil && strings.TrimSpace(*r.Result) != "" {
		var res entity.Result
		if err := json.Unmarshal([]byte(*r.Result), &res); err != nil {
			return nil, fmt.Errorf("record %s: decode result: %w", r.DocumentID, err)
		}
		rec.Result = &res
	}
	return rec, nil
}

func validateRecord(rec *entity.ExtractionRecord) error {
	if rec == nil {
		return common.InvalidArgumentError("record is required")
	}
	v := common.NewValidator()
	v.Field("document_id", rec.DocumentID, common.Required)
	v.Field("profile_id", rec.ProfileID, common.Required)
	v.Field("status", string(rec.Status), common.Required)
	return v.Error()
}

func notFound(documentID string) error {
	return common.NotFoundError(fmt.Sprintf("extraction for document %s not found", documentID))
}

func dbError(op string, err error) error {
	return common.NewAppError("DATABASE_ERROR", op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}
