package nook

import "time"

// Nook represents a named group chat room.
type Nook struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	Name         string    `gorm:"type:text;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	CreatedBy    string    `gorm:"index;type:text" json:"created_by"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the Nook entity.
func (Nook) TableName() string {
	return "nooks"
}

// Member binds a user to a nook with per-member settings.
type Member struct {
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	NookID     string    `gorm:"index;not null;type:text" json:"nook_id"`
	UserID     string    `gorm:"index;not null;type:text" json:"user_id"`
	IsAdmin    bool      `gorm:"not null;default:false" json:"is_admin"`
	IsPinned   bool      `gorm:"not null;default:false" json:"is_pinned"`
	IsMuted    bool      `gorm:"not null;default:false" json:"is_muted"`
	IsArchived bool      `gorm:"not null;default:false" json:"is_archived"`
	JoinedAt   time.Time `json:"joined_at"`
}

// TableName returns the table name for the Member entity.
func (Member) TableName() string {
	return "nook_members"
}
