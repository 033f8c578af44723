package repository

import (
	"fmt"

	"gorm.io/gorm"

	"permit-agent/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Record inserts the document metadata row and fills in the assigned id.
func (r *DocumentRepository) Record(document *model.Document) error {
	if err := r.db.Create(document).Error; err != nil {
		return fmt.Errorf("record document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListBySession(sessionID string) ([]model.Document, error) {
	var documents []model.Document
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return documents, nil
}

// Delete is scoped by both ids so one session cannot delete another's rows.
func (r *DocumentRepository) Delete(documentID uint, sessionID string) error {
	err := r.db.
		Where("id = ? AND session_id = ?", documentID, sessionID).
		Delete(&model.Document{}).Error
	if err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
