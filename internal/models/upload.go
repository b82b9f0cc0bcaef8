package models

import (
	"path"
	"strings"
	"time"
)

// Upload is a file uploaded into a project. The blob lives in the object
// store under "<project name>/<file name>". Transcription fields are set only
// for supported media files whose job submission succeeded; a nil job name
// means "no transcription available", never an error state.
type Upload struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Name                 string         `gorm:"size:100;not null;uniqueIndex:idx_upload_name_project,priority:2" json:"name"`
	OwnerID              uint           `gorm:"not null" json:"owner_id"`
	Owner                *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	ProjectID            uint           `gorm:"not null;uniqueIndex:idx_upload_name_project,priority:1" json:"project_id"`
	Project              *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	FileName             string         `gorm:"size:255;not null" json:"file_name"`
	Description          string         `gorm:"type:text" json:"description"`
	Keywords             string         `gorm:"size:200" json:"keywords"`
	TranscriptionJobName *string   `gorm:"size:255" json:"transcription_job_name"`
	OutputKey            *string   `gorm:"size:255" json:"output_key"`
	UploadedAt           time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Upload) TableName() string { return "uploads" }

// transcribableExtensions is the audio/video allow-list for transcription.
var transcribableExtensions = map[string]bool{
	"mp3":  true,
	"mp4":  true,
	"wav":  true,
	"flac": true,
}

// Transcribable reports whether the file's extension is in the supported
// audio/video set.
func (u *Upload) Transcribable() bool {
	return TranscribableFileName(u.FileName)
}

// TranscribableFileName reports whether fileName has a supported media extension.
func TranscribableFileName(fileName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	return transcribableExtensions[ext]
}

// MediaFormat returns the lowercase extension used as the transcription
// service's media format parameter.
func (u *Upload) MediaFormat() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.FileName), "."))
}
