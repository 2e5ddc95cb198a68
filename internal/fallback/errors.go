package fallback

import (
	"fmt"
	"strings"
)

const KindAllProvidersFailed = "AllProvidersFailed"

// notAttemptedMessage marks providers the search deadline cut off before
// they were called.
const notAttemptedMessage = "not attempted: search deadline"

// Attempt is one provider's failure within a search.
type Attempt struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// SearchError is returned when no configured provider produced a result.
// It lists every configured provider in order, including any the deadline
// left untried.
type SearchError struct {
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	ProvidersTried []Attempt `json:"providers_tried"`
}

func (e *SearchError) Error() string {
	return e.Message
}

func newSearchError(attempts []Attempt) *SearchError {
	if attempts == nil {
		attempts = []Attempt{}
	}
	var msg string
	switch len(attempts) {
	case 0:
		msg = "no flight providers are configured"
	default:
		parts := make([]string, len(attempts))
		for i, a := range attempts {
			parts[i] = fmt.Sprintf("%s (%s: %s)", a.Provider, a.Kind, a.Message)
		}
		msg = fmt.Sprintf("all %d providers failed: %s", len(attempts), strings.Join(parts, "; "))
	}
	return &SearchError{
		Kind:           KindAllProvidersFailed,
		Message:        msg,
		ProvidersTried: attempts,
	}
}
