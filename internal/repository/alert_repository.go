package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
	"FinAlert/pkg/postgres"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// PGAlertStore persists generated alerts in Postgres.
type PGAlertStore struct {
	db postgres.DB
}

func NewPGAlertStore(db postgres.DB) *PGAlertStore {
	return &PGAlertStore{db: db}
}

const alertColumns = `id, symbol, alert_type, level, title, description, change_percent,
	timeframe, volume, details, is_active, dismissed, created_at`

const findRecentAlert = `
	SELECT ` + alertColumns + `
	FROM generated_alerts
	WHERE symbol = $1 AND alert_type = $2 AND created_at >= $3
	ORDER BY created_at DESC
	LIMIT 1`

func (s *PGAlertStore) FindRecent(ctx context.Context, symbol, alertType string, since time.Time) (*models.GeneratedAlert, error) {
	row := s.db.QueryRow(ctx, findRecentAlert, symbol, alertType, since.UTC())
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewPersistenceError("alert", symbol+"/"+alertType, err)
	}
	return a, nil
}

const insertAlert = `
	INSERT INTO generated_alerts (` + alertColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (s *PGAlertStore) Create(ctx context.Context, a *models.GeneratedAlert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	details, err := json.Marshal(nonNilDetails(a.Details))
	if err != nil {
		return errs.NewPersistenceError("alert", a.ID, fmt.Errorf("encode details: %w", err))
	}

	_, err = s.db.Exec(ctx, insertAlert,
		a.ID,
		a.Symbol,
		a.AlertType,
		string(a.Level),
		a.Title,
		a.Description,
		a.ChangePercent,
		a.Timeframe,
		a.Volume,
		details,
		a.IsActive,
		a.Dismissed,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return errs.NewPersistenceError("alert", a.ID, err)
	}
	return nil
}

// ListRecent returns the newest alerts matching filter, newest first.
func (s *PGAlertStore) ListRecent(ctx context.Context, f drepo.AlertFilter) ([]models.GeneratedAlert, error) {
	var (
		where []string
		args  []any
	)
	if f.Symbol != "" {
		args = append(args, strings.ToUpper(f.Symbol))
		where = append(where, fmt.Sprintf("symbol = $%d", len(args)))
	}
	if f.Level != "" {
		args = append(args, string(f.Level))
		where = append(where, fmt.Sprintf("level = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	limit = min(limit, maxAlertLimit)
	args = append(args, limit)

	q := "SELECT " + alertColumns + " FROM generated_alerts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.NewPersistenceError("alert", "", err)
	}
	defer rows.Close()

	var out []models.GeneratedAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errs.NewPersistenceError("alert", "", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewPersistenceError("alert", "", err)
	}
	return out, nil
}

func scanAlert(row pgx.Row) (*models.GeneratedAlert, error) {
	var (
		a       models.GeneratedAlert
		level   string
		details []byte
	)
	err := row.Scan(
		&a.ID,
		&a.Symbol,
		&a.AlertType,
		&level,
		&a.Title,
		&a.Description,
		&a.ChangePercent,
		&a.Timeframe,
		&a.Volume,
		&details,
		&a.IsActive,
		&a.Dismissed,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Level = models.AlertLevel(level)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}
	return &a, nil
}

func nonNilDetails(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}
