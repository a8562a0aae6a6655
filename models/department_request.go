package models

import (
	"time"

	"gorm.io/datatypes"
)

// DepartmentRequest routes an unresolved session to a back-office team.
// ChatLogs is a snapshot of the conversation at routing time, taken as-is
// from the client. Resolving a request also resolves the parent session.
type DepartmentRequest struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  uint           `gorm:"column:session_id;index" json:"session_id"`
	Department string         `gorm:"size:50;not null" json:"department"` // billing, technical, accounts, compliance
	Status     string         `gorm:"size:20;default:pending" json:"status"`
	Message    string         `gorm:"type:text" json:"message"`
	ChatLogs   datatypes.JSON `gorm:"column:chat_logs" json:"chat_logs"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (DepartmentRequest) TableName() string {
	return "department_requests"
}
