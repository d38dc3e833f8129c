// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered Conduit author or reader.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Username   string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Password   string    `gorm:"not null" json:"-"`
	Bio        string    `gorm:"size:255;not null;default:''" json:"bio"`
	Image      string    `gorm:"size:500;not null;default:''" json:"image"`
	IsStaff    bool      `gorm:"not null;default:false" json:"is_staff"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	DateJoined time.Time `gorm:"autoCreateTime" json:"date_joined"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
