package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"permit-agent/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert inserts the session or, when the id already exists, refreshes its
// base URL, vector db id, and updated_at.
func (r *SessionRepository) Upsert(session *model.Session) error {
	err := r.db.
		Omit("Messages", "Documents").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"base_url", "vector_db_id", "updated_at"}),
		}).
		Create(session).Error
	if err != nil {
		return fmt.Errorf("upsert session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(sessionID string) (*model.Session, error) {
	var session model.Session
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// GetWithChildren loads the session together with its messages (oldest first)
// and documents (newest first).
func (r *SessionRepository) GetWithChildren(sessionID string) (*model.Session, error) {
	var session model.Session
	err := r.db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session with children failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListAll() ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// Delete removes the session and cascades to its messages and documents.
func (r *SessionRepository) Delete(sessionID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Document{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&model.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
