package repository

import (
	"fmt"

	"gorm.io/gorm"

	"permit-agent/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("append message failed: %w", err)
	}
	return nil
}

// ReplaceAll swaps the session's entire message list inside one transaction.
// Either the old set or the new set survives, never a mix.
func (r *MessageRepository) ReplaceAll(sessionID string, messages []model.Message) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		for i := range messages {
			messages[i].SessionID = sessionID
			if err := tx.Create(&messages[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace messages failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListBySession(sessionID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}
