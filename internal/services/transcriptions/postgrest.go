package transcriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"

	"github.com/killallgit/lectra-api/internal/models"
)

// DefaultTable is the table holding transcription rows.
const DefaultTable = "transcriptions"

var errClientClosed = errors.New("postgrest client is closed")

// QueryClient starts PostgREST queries. *supabase.Handle satisfies it.
type QueryClient interface {
	From(table string) *postgrest.QueryBuilder
}

// postgrestRepository implements Repository over Supabase's PostgREST API.
// Soft-delete filtering lives in active() and nowhere else.
type postgrestRepository struct {
	client QueryClient
	table  string
	now    func() time.Time
}

// NewPostgrestRepository creates a repository backed by PostgREST
func NewPostgrestRepository(client QueryClient, table string) Repository {
	if table == "" {
		table = DefaultTable
	}
	return &postgrestRepository{
		client: client,
		table:  table,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// insertRow omits server-defaulted columns so PostgREST fills them.
type insertRow struct {
	ID                   string   `json:"id"`
	AudioFileName        string   `json:"audio_file_name"`
	AudioFileURL         *string  `json:"audio_file_url"`
	AudioMimeType        *string  `json:"audio_mime_type,omitempty"`
	AudioDurationSeconds *float64 `json:"audio_duration_seconds,omitempty"`
	AudioFileSizeBytes   *int64   `json:"audio_file_size_bytes,omitempty"`
	TranscriptionText    string   `json:"transcription_text"`
	LanguageCode         string   `json:"language_code"`
	Status               string   `json:"status"`
	WordCount            *int     `json:"word_count"`
	ConfidenceScore      *float64 `json:"confidence_score,omitempty"`
	CreatedAt            string   `json:"created_at,omitempty"`
	UpdatedAt            string   `json:"updated_at"`
}

func (r *postgrestRepository) from() (*postgrest.QueryBuilder, error) {
	qb := r.client.From(r.table)
	if qb == nil {
		return nil, errClientClosed
	}
	return qb, nil
}

func (r *postgrestRepository) active(fb *postgrest.FilterBuilder) *postgrest.FilterBuilder {
	return fb.Is("deleted_at", "null")
}

func (r *postgrestRepository) Create(ctx context.Context, transcription *models.Transcription) error {
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

	row := insertRow{
		ID:                   transcription.ID,
		AudioFileName:        transcription.AudioFileName,
		AudioFileURL:         transcription.AudioFileURL,
		AudioMimeType:        transcription.AudioMimeType,
		AudioDurationSeconds: transcription.AudioDurationSeconds,
		AudioFileSizeBytes:   transcription.AudioFileSizeBytes,
		TranscriptionText:    transcription.TranscriptionText,
		LanguageCode:         transcription.LanguageCode,
		Status:               transcription.Status,
		WordCount:            transcription.WordCount,
		ConfidenceScore:      transcription.ConfidenceScore,
		UpdatedAt:            transcription.UpdatedAt.Format(time.RFC3339Nano),
	}
	if !transcription.CreatedAt.IsZero() {
		row.CreatedAt = transcription.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	qb, err := r.from()
	if err != nil {
		return err
	}

	var created []models.Transcription
	if _, err := qb.Insert(row, false, "", "representation", "").ExecuteTo(&created); err != nil {
		return fmt.Errorf("creating transcription: %w", err)
	}
	if len(created) == 0 {
		return errors.New("creating transcription: no row returned")
	}

	*transcription = created[0]
	return nil
}

func (r *postgrestRepository) FindByID(ctx context.Context, id string) (*models.Transcription, error) {
	qb, err := r.from()
	if err != nil {
		return nil, err
	}

	var rows []models.Transcription
	if _, err := r.active(qb.Select("*", "", false).Eq("id", id)).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("finding transcription %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *postgrestRepository) FindAll(ctx context.Context, limit, offset int) (*Page, error) {
	qb, err := r.from()
	if err != nil {
		return nil, err
	}
	return r.page(r.active(qb.Select("*", "exact", false)), limit, offset)
}

func (r *postgrestRepository) Search(ctx context.Context, term string, limit, offset int) (*Page, error) {
	qb, err := r.from()
	if err != nil {
		return nil, err
	}
	fb := r.active(qb.Select("*", "exact", false)).Ilike("transcription_text", "*"+escapeIlike(term)+"*")
	return r.page(fb, limit, offset)
}

func (r *postgrestRepository) page(fb *postgrest.FilterBuilder, limit, offset int) (*Page, error) {
	rows := make([]models.Transcription, 0, limit)
	total, err := fb.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(offset, offset+limit-1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("listing transcriptions: %w", err)
	}
	return &Page{Rows: rows, Total: int64(total)}, nil
}

func (r *postgrestRepository) Update(ctx context.Context, id string, patch Patch) (*models.Transcription, error) {
	updates := map[string]any{"updated_at": r.now().Format(time.RFC3339Nano)}

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

	qb, err := r.from()
	if err != nil {
		return nil, err
	}

	var rows []models.Transcription
	if _, err := r.active(qb.Update(updates, "representation", "").Eq("id", id)).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("updating transcription %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *postgrestRepository) SoftDelete(ctx context.Context, id string) error {
	now := r.now().Format(time.RFC3339Nano)

	qb, err := r.from()
	if err != nil {
		return err
	}

	var rows []models.Transcription
	fb := qb.Update(map[string]any{"deleted_at": now, "updated_at": now}, "representation", "").Eq("id", id)
	if _, err := r.active(fb).ExecuteTo(&rows); err != nil {
		return fmt.Errorf("deleting transcription %s: %w", id, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgrestRepository) HardDelete(ctx context.Context, id string) error {
	qb, err := r.from()
	if err != nil {
		return err
	}

	var rows []models.Transcription
	if _, err := qb.Delete("representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return fmt.Errorf("purging transcription %s: %w", id, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgrestRepository) ReferencesAudio(ctx context.Context, url string) (bool, error) {
	qb, err := r.from()
	if err != nil {
		return false, err
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if _, err := qb.Select("id", "", false).Eq("audio_file_url", url).Limit(1, "").ExecuteTo(&rows); err != nil {
		return false, fmt.Errorf("checking audio references: %w", err)
	}
	return len(rows) > 0, nil
}

var ilikeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `\*`)

// escapeIlike makes term match literally. PostgREST reads '*' as the ilike
// wildcard and passes the rest through to ILIKE.
func escapeIlike(term string) string {
	return ilikeEscaper.Replace(term)
}
