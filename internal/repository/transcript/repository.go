// Package transcript persists finalized hypotheses and caches the
// latest partial per recognizer. Finals go to mysql via gorm;
// partials only live in redis with a TTL since they are superseded
// constantly.
package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	SaveFinal(ctx context.Context, t Transcript) (*Transcript, error)
	BySession(ctx context.Context, sessionID uuid.UUID) ([]Transcript, error)
	CachePartial(recognizer, text string) error
	LatestPartial(recognizer string) (string, error)
}

func PartialKey(recognizer string) string {
	return fmt.Sprintf("stt:%s:partial", recognizer)
}

type GormTranscriptRepo struct {
	db         *gorm.DB
	rc         *redis.Client
	partialTTL time.Duration
}

func NewGormTranscriptRepo(db *gorm.DB, rc *redis.Client, partialTTL time.Duration) *GormTranscriptRepo {
	return &GormTranscriptRepo{
		db:         db,
		rc:         rc,
		partialTTL: partialTTL,
	}
}

// SaveFinal implements Repository.
func (g *GormTranscriptRepo) SaveFinal(ctx context.Context, t Transcript) (*Transcript, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	te := &TranscriptEntity{}
	te.FromDomain(&t)
	if err := g.db.WithContext(ctx).Create(te).Error; err != nil {
		return nil, fmt.Errorf("storing transcript: %w", err)
	}

	// A stored final supersedes any cached partial.
	if g.rc != nil {
		g.rc.Del(PartialKey(t.Recognizer))
	}

	return te.ToDomain(), nil
}

// BySession implements Repository.
func (g *GormTranscriptRepo) BySession(ctx context.Context, sessionID uuid.UUID) ([]Transcript, error) {
	var entities []TranscriptEntity
	err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("listing session transcripts: %w", err)
	}

	out := make([]Transcript, 0, len(entities))
	for i := range entities {
		out = append(out, *entities[i].ToDomain())
	}
	return out, nil
}

// CachePartial implements Repository.
func (g *GormTranscriptRepo) CachePartial(recognizer, text string) error {
	if g.rc == nil {
		return nil
	}
	return g.rc.Set(PartialKey(recognizer), text, g.partialTTL).Err()
}

// LatestPartial implements Repository.
func (g *GormTranscriptRepo) LatestPartial(recognizer string) (string, error) {
	if g.rc == nil {
		return "", nil
	}
	text, err := g.rc.Get(PartialKey(recognizer)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return text, err
}

// NopRepository discards everything; used when persistence is
// disabled in config.
type NopRepository struct{}

func (NopRepository) SaveFinal(ctx context.Context, t Transcript) (*Transcript, error) {
	return &t, nil
}

func (NopRepository) BySession(ctx context.Context, sessionID uuid.UUID) ([]Transcript, error) {
	return nil, nil
}

func (NopRepository) CachePartial(recognizer, text string) error { return nil }

func (NopRepository) LatestPartial(recognizer string) (string, error) { return "", nil }
