package transcriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/killallgit/lectra-api/internal/models"
)

// repository implements Repository using GORM. The active-rows predicate is
// gorm's DeletedAt scope, so every query built from active() excludes
// soft-deleted rows and only unscoped() can see them.
type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new GORM-backed transcription repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *repository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Transcription{})
}

func (r *repository) unscoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Unscoped().Model(&models.Transcription{})
}

// Create creates a new transcription
func (r *repository) Create(ctx context.Context, transcription *models.Transcription) error {
	if transcription == nil {
		return ErrNilTranscription
	}

	if transcription.ID == "" {
		transcription.ID = uuid.NewString()
	}
	if transcription.Status == "" {
		transcription.Status = models.StatusCompleted
	}
	transcription.RefreshWordCount()
	transcription.UpdatedAt = r.now()

	if err := r.db.WithContext(ctx).Create(transcription).Error; err != nil {
		return fmt.Errorf("creating transcription: %w", err)
	}
	return nil
}

// FindByID retrieves an active transcription
func (r *repository) FindByID(ctx context.Context, id string) (*models.Transcription, error) {
	var transcription models.Transcription

	err := r.active(ctx).Where("id = ?", id).First(&transcription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding transcription %s: %w", id, err)
	}

	return &transcription, nil
}

// FindAll returns active transcriptions, newest first
func (r *repository) FindAll(ctx context.Context, limit, offset int) (*Page, error) {
	return r.page(ctx, r.active(ctx), limit, offset)
}

// Search performs a case-insensitive substring match over transcription_text
func (r *repository) Search(ctx context.Context, term string, limit, offset int) (*Page, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	query := r.active(ctx).Where("LOWER(transcription_text) LIKE ? ESCAPE '\\'", pattern)
	return r.page(ctx, query, limit, offset)
}

func (r *repository) page(ctx context.Context, query *gorm.DB, limit, offset int) (*Page, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting transcriptions: %w", err)
	}

	rows := make([]models.Transcription, 0, limit)
	err := query.Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing transcriptions: %w", err)
	}

	return &Page{Rows: rows, Total: total}, nil
}

// Update applies a partial update to an active transcription
func (r *repository) Update(ctx context.Context, id string, patch Patch) (*models.Transcription, error) {
	updates := map[string]any{"updated_at": r.now()}

	if patch.TranscriptionText != nil {
		updates["transcription_text"] = *patch.TranscriptionText
		updates["word_count"] = models.CountWords(*patch.TranscriptionText)
	}
	if patch.LanguageCode != nil {
		updates["language_code"] = *patch.LanguageCode
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.ConfidenceScore != nil {
		updates["confidence_score"] = *patch.ConfidenceScore
	}

	result := r.active(ctx).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("updating transcription %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.FindByID(ctx, id)
}

// SoftDelete sets deleted_at on an active transcription
func (r *repository) SoftDelete(ctx context.Context, id string) error {
	now := r.now()
	result := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"deleted_at": now,
		"updated_at": now,
	})
	if result.Error != nil {
		return fmt.Errorf("deleting transcription %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the row permanently, including soft-deleted rows
func (r *repository) HardDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.Transcription{})
	if result.Error != nil {
		return fmt.Errorf("purging transcription %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReferencesAudio checks whether any row, including soft-deleted ones, uses url
func (r *repository) ReferencesAudio(ctx context.Context, url string) (bool, error) {
	var count int64
	if err := r.unscoped(ctx).Where("audio_file_url = ?", url).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking audio references: %w", err)
	}
	return count > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
