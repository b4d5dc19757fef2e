package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleMerchant UserRole = "merchant"
	RoleDriver   UserRole = "driver"
	RoleAdmin    UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Name           string    `json:"name" gorm:"not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"not null"`
	Role           UserRole  `json:"role" gorm:"not null;default:'customer'"`
	RestaurantName string    `json:"restaurantName,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Actor is the verified caller of an operation, as supplied by the identity layer.
type Actor struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Role           UserRole `json:"role"`
	RestaurantName string   `json:"restaurantName,omitempty"`
	IsActive       bool     `json:"isActive"`
}

// ActorFor builds the actor view of a stored user.
func ActorFor(u *User) Actor {
	return Actor{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		RestaurantName: u.RestaurantName,
		IsActive:       u.IsActive,
	}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
