package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:user"` // user, admin
}

// Enrollment anchors the module unlock schedule for an email.
type Enrollment struct {
	gorm.Model
	Email      string    `gorm:"unique;not null"`
	EnrolledAt time.Time `gorm:"not null"`
}
