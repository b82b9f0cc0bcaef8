package models

import "time"

// Prompt is a discussion prompt attached to an upload. Only its creator may
// delete it; responses cascade with it.
type Prompt struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UploadID    uint             `gorm:"index;not null" json:"upload_id"`
	Upload      *Upload          `gorm:"foreignKey:UploadID" json:"upload,omitempty"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	CreatedByID uint             `gorm:"not null" json:"created_by_id"`
	CreatedBy   *User            `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Responses   []PromptResponse `gorm:"foreignKey:PromptID" json:"responses,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (Prompt) TableName() string { return "prompts" }

// PromptResponse is a reply within a prompt thread.
type PromptResponse struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PromptID    uint      `gorm:"index;not null" json:"prompt_id"`
	Prompt      *Prompt   `gorm:"foreignKey:PromptID" json:"prompt,omitempty"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedByID uint      `gorm:"not null" json:"created_by_id"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PromptResponse) TableName() string { return "prompt_responses" }
