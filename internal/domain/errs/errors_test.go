package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	fetch := fmt.Errorf("source x: %w", NewFetchError("https://a.example/rss", "status", base))
	assert.True(t, IsFetch(fetch))
	assert.False(t, IsPersistence(fetch))
	assert.ErrorIs(t, fetch, base)

	persist := NewPersistenceError("alert", "BTC|price_change", base)
	assert.True(t, IsPersistence(persist))
	assert.Contains(t, persist.Error(), "BTC|price_change")

	cfg := &ConfigurationError{Reason: "collection skipped", Err: ErrNoEnabledSources}
	assert.True(t, IsConfiguration(cfg))
	assert.ErrorIs(t, cfg, ErrNoEnabledSources)
}
