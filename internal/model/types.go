package model

import "strings"

// Anomaly tags attached to a trade at detection time. The tag list on a
// stored trade is ordered and never mutated after write.
const (
	TagSilentBreaker = "Silent-breaker"
	TagUnusualSize   = "Unusual size"
	TagAccumulation  = "Accumulation"
)

// Topic filter values a subscriber may choose.
const (
	TopicAll    = "all"
	TopicMacro  = "macro"
	TopicCrypto = "crypto"
	TopicSports = "sports"
	TopicOther  = "other"
)

// Trade is the canonical form of an upstream trade record.
type Trade struct {
	ID          string  // Globally unique; synthesized when upstream omits an id
	TSMillis    int64   // Upstream event time (ms since epoch), never receipt time
	Ticker      string  // Upper-cased instrument symbol
	Side        string  // Upper-cased, "UNKNOWN" if absent
	Size        int     // Contract count, non-negative
	PriceCents  int     // Probability price (0-100)
	NotionalUSD float64 // size * price dollars, 0 when inputs are missing
}

// Subscriber holds one user's alert preferences.
type Subscriber struct {
	UserID       int64
	AlertsOn     bool
	ThresholdUSD float64
	Topic        string // all|macro|crypto|sports|other
	Timezone     string // IANA name, e.g. "Europe/London"
}

// macro/sports keyword tables for CategorizeTicker.
var (
	macroKeywords  = []string{"CPI", "FED", "RATE", "UNEMP", "GDP", "PCE"}
	sportsKeywords = []string{"NFL", "NBA", "MLB", "NHL", "EPL"}
)

// CategorizeTicker classifies an instrument symbol into a topic by fixed
// substring rules.
func CategorizeTicker(ticker string) string {
	t := strings.ToUpper(ticker)
	if strings.Contains(t, "BTC") || strings.Contains(t, "CRYPTO") {
		return TopicCrypto
	}
	for _, k := range macroKeywords {
		if strings.Contains(t, k) {
			return TopicMacro
		}
	}
	for _, k := range sportsKeywords {
		if strings.Contains(t, k) {
			return TopicSports
		}
	}
	return TopicOther
}

// TopicMatch reports whether a subscriber topic filter matches a ticker.
// "all" matches everything; otherwise the ticker's category must equal the
// filter exactly.
func TopicMatch(topic, ticker string) bool {
	return topic == TopicAll || CategorizeTicker(ticker) == topic
}

// ValidTopic reports whether s is an accepted topic filter value.
func ValidTopic(s string) bool {
	switch s {
	case TopicAll, TopicMacro, TopicCrypto, TopicSports, TopicOther:
		return true
	}
	return false
}
