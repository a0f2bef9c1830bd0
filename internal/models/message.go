package models

import "github.com/google/uuid"

// AIParticipantID is the reserved receiver/sender ID denoting the AI counterpart.
const AIParticipantID = "AI"

// Message is a single direct message. Messages are immutable once created.
type Message struct {
	ID string `json:"id"`
	// SenderID is a user ID or AIParticipantID.
	SenderID string `json:"senderId"`
	// ReceiverID is a user ID or AIParticipantID.
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	// Timestamp is a unix timestamp in milliseconds.
	Timestamp int64 `json:"timestamp"`
	IsSystem  bool  `json:"isSystem,omitempty"`
}

// NewMessage builds a message stamped with a fresh UUID and the current time.
func NewMessage(senderID, receiverID, content string) Message {
	return Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  NowMillis(),
	}
}

// Between reports whether the unordered {sender, receiver} pair equals {a, b}.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}
