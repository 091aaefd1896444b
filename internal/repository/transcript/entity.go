package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Transcript is one finalized hypothesis from a recognizer session.
type Transcript struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"sessionId"`
	Recognizer   string    `json:"recognizer"`
	Engine       string    `json:"engine"`
	Text         string    `json:"text"`
	AudioSeconds float64   `json:"audioSeconds"`
	CreatedAt    time.Time `json:"createdAt"`
}

type TranscriptEntity struct {
	ID           uuid.UUID `gorm:"primaryKey;type:char(36);not null"`
	SessionID    uuid.UUID `gorm:"column:session_id;type:char(36);index;not null"`
	Recognizer   string    `gorm:"type:varchar(32)"`
	Engine       string    `gorm:"type:varchar(32)"`
	Text         string    `gorm:"type:text"`
	AudioSeconds float64   `gorm:"column:audio_seconds"`
	CreatedAt    time.Time `gorm:"autoCreateTime(3)"`
}

func (te *TranscriptEntity) FromDomain(t *Transcript) {
	te.ID = t.ID
	te.SessionID = t.SessionID
	te.Recognizer = t.Recognizer
	te.Engine = t.Engine
	te.Text = t.Text
	te.AudioSeconds = t.AudioSeconds
	te.CreatedAt = t.CreatedAt
}

func (te *TranscriptEntity) ToDomain() *Transcript {
	return &Transcript{
		ID:           te.ID,
		SessionID:    te.SessionID,
		Recognizer:   te.Recognizer,
		Engine:       te.Engine,
		Text:         te.Text,
		AudioSeconds: te.AudioSeconds,
		CreatedAt:    te.CreatedAt,
	}
}
