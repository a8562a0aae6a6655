package models

import "time"

// User is an identity record owned by the external auth service. The chat
// core only reads it, to recognize returning customers by phone or email.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex" json:"email"`
	Phone        string    `gorm:"size:20;index" json:"phone"`
	PasswordHash string    `gorm:"column:password_hash;size:255" json:"-"`
	Role         string    `gorm:"size:20;default:customer" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
