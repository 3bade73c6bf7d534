package storage

import (
	"fmt"
	"time"

	"pair-chat/domain/chat"
)

const (
	userPrefix         = "user:"
	userEmailPrefix    = "user-email:"
	conversationPrefix = "conversation:"
	pairPrefix         = "conversation-pair:"
	memberPrefix       = "conversation-member:"
	messagePrefix      = "msg:"
	idempotencyPrefix  = "msg-idem:"
	messageSequenceKey = "seq:msg"
)

func userKey(id string) []byte {
	return []byte(userPrefix + id)
}

func userEmailKey(email string) []byte {
	return []byte(userEmailPrefix + email)
}

func conversationKey(id chat.ConversationID) []byte {
	return []byte(conversationPrefix + id.String())
}

func pairKey(pair chat.MemberPair) []byte {
	return []byte(pairPrefix + pair.Key())
}

func memberKey(userID string, id chat.ConversationID) []byte {
	return []byte(memberPrefix + userID + ":" + id.String())
}

func memberScanPrefix(userID string) []byte {
	return []byte(memberPrefix + userID + ":")
}

func messageScanPrefix(id chat.ConversationID) []byte {
	return []byte(messagePrefix + id.String() + ":")
}

// messageKey is formatted as "msg:{conversation_id}:{created_at_padded}:{sequence_padded}".
// Zero padding keeps lexicographical order equal to (createdAt, insertion sequence) order.
func messageKey(id chat.ConversationID, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%020d", messagePrefix, id, at.UnixNano(), seq))
}

func idempotencyScanPrefix(id chat.ConversationID) []byte {
	return []byte(idempotencyPrefix + id.String() + ":")
}

func idempotencyIndexKey(id chat.ConversationID, senderID, key string) []byte {
	return []byte(idempotencyPrefix + id.String() + ":" + senderID + ":" + key)
}
