package database

import (
	"gorm.io/gorm"

	"github.com/talkie-app/sttd/internal/repository/transcript"
)

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&transcript.TranscriptEntity{},
	)
}
