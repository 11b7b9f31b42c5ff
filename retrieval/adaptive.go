package retrieval

import (
	"regexp"
	"strings"
)

// DepthConfig clamps the adaptive retrieval depth.
type DepthConfig struct {
	BaseK int `json:"base_k"`
	MinK  int `json:"min_k"`
	MaxK  int `json:"max_k"`
}

// DefaultDepthConfig returns the standard clamp.
func DefaultDepthConfig() DepthConfig {
	return DepthConfig{BaseK: 5, MinK: 3, MaxK: 15}
}

var (
	questionWords   = []string{"what", "how", "why", "when", "where", "who"}
	comparisonWords = []string{"compare", "contrast", "difference", "versus", "vs", "vs."}
	properNounRe    = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	digitRe         = regexp.MustCompile(`\d`)
)

// AdaptiveDepth calculates how many results to request per adapter from
// the query's shape: long or multi-question queries widen retrieval,
// comparisons widen it further, and specific queries (proper nouns,
// numbers) narrow it. The result is clamped to [MinK, MaxK].
func AdaptiveDepth(query string, cfg DepthConfig) int {
	k := cfg.BaseK
	lower := strings.ToLower(query)

	wordCount := len(strings.Fields(query))
	switch {
	case wordCount > 20:
		k += 3
	case wordCount > 10:
		k += 2
	case wordCount < 5:
		k--
	}

	questions := 0
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			questions++
		}
	}
	if questions > 1 {
		k += 2
	}

	for _, w := range comparisonWords {
		if strings.Contains(lower, w) {
			k += 3
			break
		}
	}

	if properNounRe.MatchString(query) || digitRe.MatchString(query) {
		k--
	}

	if k < cfg.MinK {
		k = cfg.MinK
	}
	if k > cfg.MaxK {
		k = cfg.MaxK
	}
	return k
}
