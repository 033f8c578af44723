package model

import "time"

type Session struct {
	SessionID  string    `gorm:"column:session_id;primaryKey;size:64" json:"session_id"`
	BaseURL    string    `gorm:"column:base_url;not null" json:"base_url"`
	VectorDBID string    `gorm:"column:vector_db_id;not null" json:"vector_db_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Messages  []Message  `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	Documents []Document `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
}
