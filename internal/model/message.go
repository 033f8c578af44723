package model

import "time"

type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"column:session_id;size:64;not null;index:idx_messages_session_created,priority:1" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_messages_session_created,priority:2" json:"created_at"`
}
