package domain

// WebSocket message types from client.
const (
	MsgTypeSendPrivateMessage = "send_private_message"
	MsgTypePing               = "ping"
)

// WebSocket message types to client.
const (
	MsgTypePrivateMessage    = "private_message"
	MsgTypeUpdateOnlineUsers = "update_online_users"
	MsgTypeError             = "error"
	MsgTypePong              = "pong"
)

// Error codes
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnknownUser       = "UNKNOWN_USER"
	ErrCodePersistenceFailed = "PERSISTENCE_FAILED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type SendPrivateMessage struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Msg       string `json:"msg"`
}

// Server -> Client messages

type PrivateMessageOut struct {
	Type      string `json:"type"`
	MessageID uint64 `json:"message_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Msg       string `json:"msg"`
	Timestamp int64  `json:"timestamp"`
}

// NewPrivateMessageOut builds the delivery frame for a persisted message.
func NewPrivateMessageOut(m *Message) *PrivateMessageOut {
	return &PrivateMessageOut{
		Type:      MsgTypePrivateMessage,
		MessageID: m.ID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Msg:       m.Body,
		Timestamp: m.CreatedAt.UnixMilli(),
	}
}

type OnlineUsersMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

func NewOnlineUsersMessage(users []string) *OnlineUsersMessage {
	if users == nil {
		users = []string{}
	}
	return &OnlineUsersMessage{
		Type:  MsgTypeUpdateOnlineUsers,
		Users: users,
	}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
