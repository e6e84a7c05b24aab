package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FinAlert/internal/domain/models"
)

func TestExtractCoins(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"tickers", "BTC and ETH rally while SOL lags", []string{"BTC", "ETH", "SOL"}},
		{"word boundary", "BTCUSD pair and ETHER", []string{}},
		{"names mapped", "Bitcoin beats Ethereum", []string{"BTC", "ETH"}},
		{"no duplicates", "BTC bitcoin BTC", []string{"BTC"}},
		{"capped", "BTC ETH BNB XRP ADA SOL DOGE", []string{"BTC", "ETH", "BNB", "XRP", "ADA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCoins(tt.text))
		})
	}
}

func TestClassifyUrgency(t *testing.T) {
	assert.Equal(t, models.UrgencyUrgent, ClassifyUrgency("Exchange hack drains wallets", ""))
	assert.Equal(t, models.UrgencyHigh, ClassifyUrgency("Token launch", "new partnership"))
	assert.Equal(t, models.UrgencyMedium, ClassifyUrgency("Weekly outlook", "a short analysis"))
	assert.Equal(t, models.UrgencyLow, ClassifyUrgency("Community meetup", "see you there"))
}
