package repository

import (
	"context"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	"FinAlert/pkg/postgres"
)

// PGItemStore writes feed items idempotently on (source_id, external_id).
type PGItemStore struct {
	db postgres.DB
}

func NewPGItemStore(db postgres.DB) *PGItemStore {
	return &PGItemStore{db: db}
}

const insertItem = `
	INSERT INTO feed_items (source_id, external_id, title, link, published_at, content, coins, urgency)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (source_id, external_id) DO NOTHING`

// InsertItems returns the number of rows that were actually inserted. On error the
// count inserted before the failing row is returned with the error.
func (s *PGItemStore) InsertItems(ctx context.Context, items []models.FeedItem) (int, error) {
	inserted := 0
	for _, it := range items {
		coins := it.Coins
		if coins == nil {
			coins = []string{}
		}
		urgency := it.Urgency
		if urgency == "" {
			urgency = models.UrgencyLow
		}

		tag, err := s.db.Exec(ctx, insertItem,
			it.SourceID,
			it.ExternalID,
			it.Title,
			it.Link,
			it.PublishedAt.UTC(),
			it.Content,
			coins,
			string(urgency),
		)
		if err != nil {
			return inserted, errs.NewPersistenceError("item", it.SourceID+"/"+it.ExternalID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
