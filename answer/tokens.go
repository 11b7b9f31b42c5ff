package answer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates prompt sizes for the context budget.
type TokenCounter interface {
	CountTokens(text string) int
}

// EstimateCounter approximates tokens as len(text)/4. Deterministic and
// dependency-free; the default for tests and for environments where the
// tiktoken data cannot be fetched.
type EstimateCounter struct{}

func (EstimateCounter) CountTokens(text string) int { return len(text) / 4 }

// TiktokenCounter counts tokens with the model's real encoding, falling
// back to the estimate when the encoding cannot be initialized.
type TiktokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
}

// NewTiktokenCounter creates a counter for the given model. Encoding data
// is loaded lazily on first use.
func NewTiktokenCounter(model string) *TiktokenCounter {
	encoding := "cl100k_base"
	if enc, err := tiktoken.EncodingForModel(model); err == nil && enc != nil {
		// EncodingForModel already resolved it; remember the name via
		// a pre-initialized encoder.
		return &TiktokenCounter{encoding: encoding, enc: enc}
	}
	return &TiktokenCounter{encoding: encoding}
}

func (t *TiktokenCounter) init() error {
	t.once.Do(func() {
		if t.enc != nil {
			return
		}
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens implements TokenCounter.
func (t *TiktokenCounter) CountTokens(text string) int {
	if err := t.init(); err != nil {
		return EstimateCounter{}.CountTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}
