package search

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query represents the structured parameters of a message search.
// It decouples the raw input from the actual index requirements.
type Query struct {
	RawInput       string // The original input from the user
	Terms          string // The actual text to search in the index
	SenderID       string // Restricts hits to one author
	ConversationID string // Restricts hits to one conversation
	Limit          int    // Pagination: number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: /find "invoice" --from 42 --conversation 0b3c... --limit 5
func NewSearchQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    DefaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "from":
				query.SenderID = val
			case "conversation":
				query.ConversationID = val
			case "limit":
				if n, err := strconv.Atoi(val); err == nil {
					query.WithLimit(n)
				}
			}
			i++
			continue
		}

		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.TrimSpace(strings.Join(textTerms, " "))
	return query
}

// WithLimit clamps n into (0, MaxLimit]; non-positive values keep the current limit.
func (q *Query) WithLimit(n int) *Query {
	if n <= 0 {
		return q
	}
	q.Limit = min(n, MaxLimit)
	return q
}

func (q *Query) Empty() bool {
	return q.Terms == ""
}

// Hit is one message matching a query.
type Hit struct {
	MessageID      string
	ConversationID string
	SenderID       string
	Body           string
	CreatedAt      time.Time
	Score          float64
}
