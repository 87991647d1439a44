// Package tokens estimates answer sizes with tiktoken.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// DefaultEncoding is cl100k_base, close enough for every supported provider.
const DefaultEncoding = "cl100k_base"

// Estimator counts tokens. A zero Estimator falls back to chars/4.
type Estimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	globalEstimator     *Estimator
	globalEstimatorOnce sync.Once
)

// Get returns the shared estimator. The encoding is loaded on first use.
func Get() *Estimator {
	globalEstimatorOnce.Do(func() {
		var err error
		globalEstimator, err = New()
		if err != nil {
			L_warn("tokens: encoding unavailable, using chars/4", "error", err)
			globalEstimator = &Estimator{}
		}
	})
	return globalEstimator
}

// New loads DefaultEncoding.
func New() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}
	return &Estimator{encoding: enc}, nil
}

// Count returns the token count for text.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e == nil || e.encoding == nil {
		return fallback(text)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.encoding.Encode(text, nil, nil))
}

func fallback(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// Size is the measured length of an answer.
type Size struct {
	Tokens int
	Chars  int
}

// Measure counts tokens and characters of text.
func (e *Estimator) Measure(text string) Size {
	return Size{Tokens: e.Count(text), Chars: utf8.RuneCountInString(text)}
}

// Estimate uses the shared estimator.
func Estimate(text string) int {
	return Get().Count(text)
}
