package models

import "time"

// ChatSession is one customer's conversation instance. The session token is
// the bearer credential for every session-scoped endpoint.
type ChatSession struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             *uint     `gorm:"column:user_id;index" json:"user_id,omitempty"` // null until identity detection binds a known user
	Phone              *string   `gorm:"size:20" json:"phone,omitempty"`
	Email              *string   `gorm:"size:255" json:"email,omitempty"`
	SessionToken       string    `gorm:"column:session_token;size:80;uniqueIndex;not null" json:"session_token"`
	Status             string    `gorm:"size:20;default:active;index" json:"status"` // active, escalated, resolved, closed
	IsExistingCustomer bool      `gorm:"column:is_existing_customer;default:false" json:"is_existing_customer"`
	CustomerName       *string   `gorm:"column:customer_name;size:100" json:"customer_name,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relations
	User     *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Messages []ChatMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage is one entry in a session's append-only message log, ordered by
// id ascending. MessageData is an opaque serialized document; reporting reads
// its "sender" field to compute response latency.
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"column:session_id;not null;index" json:"session_id"`
	MessageType string    `gorm:"column:message_type;size:30;default:text" json:"message_type"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	MessageData string    `gorm:"column:message_data;type:text" json:"message_data,omitempty"`
	Step        string    `gorm:"size:100" json:"step,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Session *ChatSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
