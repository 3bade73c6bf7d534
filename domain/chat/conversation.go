// Package chat contains the core concepts of the two-party conversation engine.
// No runtime, network or storage logic should be added here.
package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewConversationID is the sentinel used by clients that have not yet
// started a conversation with a peer.
const NewConversationID ConversationID = "new"

type ConversationID string

// IsEstablished reports whether the id points at a conversation that may exist.
func (c ConversationID) IsEstablished() bool {
	return c != "" && c != NewConversationID
}

// Valid reports whether the id is a well-formed conversation identifier.
func (c ConversationID) Valid() bool {
	if !c.IsEstablished() {
		return false
	}
	_, err := uuid.Parse(string(c))
	return err == nil
}

func (c ConversationID) String() string {
	return string(c)
}

func NewConversationIDFrom(id uuid.UUID) ConversationID {
	return ConversationID(id.String())
}

// MemberPair is the unordered pair of participants of a conversation,
// stored in canonical (sorted) order so that {A,B} and {B,A} are equal.
type MemberPair struct {
	First  string
	Second string
}

func NewMemberPair(a, b string) MemberPair {
	members := []string{a, b}
	sort.Strings(members)
	return MemberPair{First: members[0], Second: members[1]}
}

// Valid reports whether the pair holds two distinct, non-empty members.
func (p MemberPair) Valid() bool {
	return strings.TrimSpace(p.First) != "" &&
		strings.TrimSpace(p.Second) != "" &&
		p.First != p.Second
}

// Key is the canonical storage key of the pair.
func (p MemberPair) Key() string {
	return p.First + "|" + p.Second
}

func (p MemberPair) Has(userID string) bool {
	return p.First == userID || p.Second == userID
}

// Counterpart returns the other member, or false when userID is not a member.
func (p MemberPair) Counterpart(userID string) (string, bool) {
	switch userID {
	case p.First:
		return p.Second, true
	case p.Second:
		return p.First, true
	default:
		return "", false
	}
}

func (p MemberPair) Slice() []string {
	return []string{p.First, p.Second}
}

type Conversation struct {
	ID        ConversationID
	Members   MemberPair
	CreatedAt time.Time
}

// Profile is the display projection of a user.
type Profile struct {
	UserID   string
	Email    string
	FullName string
}

// ConversationSummary is a conversation as seen by one of its members.
type ConversationSummary struct {
	Conversation Conversation
	Counterpart  Profile
}
