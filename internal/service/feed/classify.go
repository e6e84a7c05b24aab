package feed

import (
	"regexp"
	"strings"

	"FinAlert/internal/domain/models"
)

const maxCoins = 5

var tickers = []string{
	"BTC", "ETH", "BNB", "XRP", "ADA", "SOL", "DOGE", "DOT", "AVAX",
	"SHIB", "MATIC", "LTC", "UNI", "LINK", "ATOM", "FTT", "NEAR",
	"ALGO", "VET", "ICP", "FIL", "TRX", "ETC", "HBAR", "XLM",
	"MANA", "SAND", "AXS", "APE", "CRO", "LRC", "ENJ", "CHZ",
}

var coinNames = []struct{ name, ticker string }{
	{"BITCOIN", "BTC"},
	{"ETHEREUM", "ETH"},
	{"BINANCE", "BNB"},
	{"RIPPLE", "XRP"},
	{"CARDANO", "ADA"},
	{"SOLANA", "SOL"},
	{"DOGECOIN", "DOGE"},
	{"POLKADOT", "DOT"},
}

var tickerPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(tickers))
	for i, t := range tickers {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return out
}()

// ExtractCoins returns up to five tickers mentioned in text: exact tickers first in
// list order, then full coin names mapped to their ticker.
func ExtractCoins(text string) []string {
	upper := strings.ToUpper(text)
	found := make([]string, 0, maxCoins)
	seen := make(map[string]struct{}, maxCoins)

	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		found = append(found, t)
	}

	for i, re := range tickerPatterns {
		if re.MatchString(upper) {
			add(tickers[i])
		}
	}
	for _, cn := range coinNames {
		if strings.Contains(upper, cn.name) {
			add(cn.ticker)
		}
	}

	if len(found) > maxCoins {
		found = found[:maxCoins]
	}
	return found
}

var urgencyKeywords = []struct {
	level    models.Urgency
	keywords []string
}{
	{models.UrgencyUrgent, []string{"breaking", "urgent", "alert", "crash", "hack", "exploit", "ban", "regulation", "sec", "lawsuit", "investigation", "scam"}},
	{models.UrgencyHigh, []string{"surge", "rally", "breakthrough", "milestone", "launch", "update", "partnership", "acquisition", "investment", "funding", "ipo"}},
	{models.UrgencyMedium, []string{"analysis", "report", "study", "research", "interview", "opinion", "prediction", "forecast", "trend", "market", "price"}},
}

// ClassifyUrgency returns the first tier whose keyword occurs as a substring of the text.
func ClassifyUrgency(title, content string) models.Urgency {
	text := strings.ToLower(title + " " + content)
	for _, tier := range urgencyKeywords {
		for _, kw := range tier.keywords {
			if strings.Contains(text, kw) {
				return tier.level
			}
		}
	}
	return models.UrgencyLow
}
