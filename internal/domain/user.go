package domain

import "time"

// User is a participant, identified by a unique case-sensitive username.
type User struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is an immutable direct message between two users.
type Message struct {
	ID         uint64    `json:"message_id"`
	SenderID   uint64    `json:"sender_id"`
	ReceiverID uint64    `json:"receiver_id"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Body       string    `json:"msg"`
	CreatedAt  time.Time `json:"timestamp"`
}

// HistoryEntry is one line of a conversation as returned to clients.
type HistoryEntry struct {
	Username  string `json:"username"`
	Msg       string `json:"msg"`
	Timestamp string `json:"timestamp"`
}

// HistoryTimeLayout formats history timestamps.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// ToHistoryEntry renders m from the point of view of its sender.
func (m *Message) ToHistoryEntry() HistoryEntry {
	return HistoryEntry{
		Username:  m.Sender,
		Msg:       m.Body,
		Timestamp: m.CreatedAt.UTC().Format(HistoryTimeLayout),
	}
}

// UsersResponse lists every known user and the subset currently online.
type UsersResponse struct {
	Users  []string `json:"users"`
	Online []string `json:"online"`
}

// LoginRequest is the body of POST /api/v1/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
