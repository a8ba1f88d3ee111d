package user

import (
	"strings"
	"time"
)

// User represents a registered account.
type User struct {
	ID             string     `gorm:"primaryKey;type:text" json:"id"`
	Name           string     `gorm:"type:text;not null" json:"name"`
	Email          string     `gorm:"uniqueIndex;type:text" json:"email"`
	PhoneNumber    string     `gorm:"index;type:text" json:"phone_number,omitempty"`
	DisplayPicture string     `gorm:"type:text" json:"display_picture,omitempty"`
	IsOnline       bool       `gorm:"not null;default:false" json:"is_online"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Friend is a directed friendship edge between two users.
type Friend struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"index;not null;type:text" json:"user_id"`
	FriendID  string    `gorm:"index;not null;type:text" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the Friend entity.
func (Friend) TableName() string {
	return "friends"
}

// Profile is the presence-facing view of a user, broadcast to clients.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	DisplayPicture string `json:"display_picture,omitempty"`
	IsOnline       bool   `json:"is_online"`
}

// Profile returns the presence view of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		DisplayPicture: u.DisplayPicture,
		IsOnline:       u.IsOnline,
	}
}

// FallbackProfile synthesizes a minimal profile from a token identifier when
// the storage collaborator is unavailable or has no record for the user.
func FallbackProfile(userID, identifier string) Profile {
	name := "User"
	if identifier != "" {
		if at := strings.Index(identifier, "@"); at > 0 {
			name = identifier[:at]
		} else {
			name = identifier
		}
	}
	email := identifier
	if email == "" {
		email = "unknown@email.com"
	}
	return Profile{
		ID:       userID,
		Name:     name,
		Email:    email,
		IsOnline: true,
	}
}
