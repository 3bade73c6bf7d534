package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Query
	}{
		{
			name:  "plain terms",
			input: "dinner tonight",
			want:  Query{RawInput: "dinner tonight", Terms: "dinner tonight", Limit: DefaultLimit},
		},
		{
			name:  "command with flags",
			input: `/find "invoice" --from bob --limit 5`,
			want:  Query{RawInput: `/find "invoice" --from bob --limit 5`, Terms: "invoice", SenderID: "bob", Limit: 5},
		},
		{
			name:  "conversation filter and oversized limit",
			input: "hello --conversation c1 --limit 1000",
			want:  Query{RawInput: "hello --conversation c1 --limit 1000", Terms: "hello", ConversationID: "c1", Limit: MaxLimit},
		},
		{
			name:  "dangling flag is a term",
			input: "hello --from",
			want:  Query{RawInput: "hello --from", Terms: "hello --from", Limit: DefaultLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, *NewSearchQuery(tt.input))
		})
	}
}

func TestQuery_Empty(t *testing.T) {
	require.True(t, NewSearchQuery("/find --from bob").Empty())
	require.False(t, NewSearchQuery("x").Empty())
}
