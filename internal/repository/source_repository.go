package repository

import (
	"context"
	"fmt"
	"time"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	"FinAlert/pkg/postgres"
)

// PGSourceStore implements SourceStore on the feed_sources table.
type PGSourceStore struct {
	db postgres.DB
}

func NewPGSourceStore(db postgres.DB) *PGSourceStore {
	return &PGSourceStore{db: db}
}

const listEnabledSources = `
	SELECT id, name, url, enabled, last_collected_at, total_collected, status, last_error
	FROM feed_sources
	WHERE enabled = TRUE
	ORDER BY last_collected_at ASC NULLS FIRST, id ASC`

func (s *PGSourceStore) ListEnabled(ctx context.Context) ([]models.Source, error) {
	rows, err := s.db.Query(ctx, listEnabledSources)
	if err != nil {
		return nil, errs.NewPersistenceError("source", "", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var (
			src    models.Source
			total  int64
			status string
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Enabled, &src.LastCollectedAt, &total, &status, &src.LastError); err != nil {
			return nil, errs.NewPersistenceError("source", "", fmt.Errorf("scan: %w", err))
		}
		src.TotalCollected = uint64(max(total, 0))
		src.Status = models.SourceStatus(status)
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewPersistenceError("source", "", err)
	}
	return out, nil
}

// total_collected is incremented in SQL so concurrent cycles cannot lose a delta.
const updateSource = `
	UPDATE feed_sources SET
		last_collected_at = COALESCE($2, last_collected_at),
		status            = COALESCE($3, status),
		last_error        = CASE WHEN $4::boolean THEN NULL ELSE COALESCE($5, last_error) END,
		total_collected   = total_collected + $6,
		updated_at        = now()
	WHERE id = $1`

func (s *PGSourceStore) Update(ctx context.Context, sourceID string, p models.SourcePatch) error {
	var status *string
	if p.Status != nil {
		v := string(*p.Status)
		status = &v
	}
	var last *time.Time
	if p.LastCollectedAt != nil {
		v := p.LastCollectedAt.UTC()
		last = &v
	}

	tag, err := s.db.Exec(ctx, updateSource, sourceID, last, status, p.ClearError, p.LastError, int64(p.CollectedDelta))
	if err != nil {
		return errs.NewPersistenceError("source", sourceID, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewPersistenceError("source", sourceID, fmt.Errorf("not found"))
	}
	return nil
}

const upsertSource = `
	INSERT INTO feed_sources (id, name, url, enabled)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		name       = EXCLUDED.name,
		url        = EXCLUDED.url,
		updated_at = now()`

// EnsureSources registers configured sources. Health fields and the enabled flag of
// existing rows are left as they are.
func (s *PGSourceStore) EnsureSources(ctx context.Context, sources []models.Source) error {
	for _, src := range sources {
		if _, err := s.db.Exec(ctx, upsertSource, src.ID, src.Name, src.URL, src.Enabled); err != nil {
			return errs.NewPersistenceError("source", src.ID, err)
		}
	}
	return nil
}
