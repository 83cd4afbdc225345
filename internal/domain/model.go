package domain

import "time"

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Username  string    `gorm:"type:varchar(80);uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Username:  m.Username,
		CreatedAt: m.CreatedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Text       string    `gorm:"type:varchar(500);not null"`
	SenderID   uint64    `gorm:"not null;index:idx_messages_pair,priority:1"`
	ReceiverID uint64    `gorm:"not null;index:idx_messages_pair,priority:2"`
	CreatedAt  time.Time `gorm:"not null;index"`

	Sender   UserModel `gorm:"foreignKey:SenderID"`
	Receiver UserModel `gorm:"foreignKey:ReceiverID"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message. Sender and Recipient
// names are filled only when the associations were preloaded.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Sender:     m.Sender.Username,
		Recipient:  m.Receiver.Username,
		Body:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}
