package models

import "time"

// SupportTicket is the formal escalation record for a chat session. Creating
// one flips the parent session to status "escalated" in the same transaction.
type SupportTicket struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    uint      `gorm:"column:session_id;not null;index" json:"session_id"`
	TicketNumber string    `gorm:"column:ticket_number;size:32;uniqueIndex;not null" json:"ticket_number"`
	IssueType    string    `gorm:"column:issue_type;size:100;not null" json:"issue_type"`
	SubIssue     string    `gorm:"column:sub_issue;size:100" json:"sub_issue"`
	Description  string    `gorm:"type:text" json:"description"`
	Status       string    `gorm:"size:20;default:open" json:"status"` // open, in_progress, resolved, closed
	Priority     string    `gorm:"size:20;default:medium" json:"priority"`
	AssignedTo   *string   `gorm:"column:assigned_to;size:100" json:"assigned_to,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Session *ChatSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}
