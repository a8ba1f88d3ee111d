// Package storage implements the persistence collaborator for Nook: account
// records, nooks and their memberships, and durable chat messages. Two
// backends are provided, a gorm/SQLite one for development and tests and a
// pgx/PostgreSQL one for the hosted database, selected by the module from the
// environment. The realtime relay and the REST API consume it through the
// Store interface and must tolerate a nil Store (unconfigured mode).
package storage

import (
	"context"
	"errors"

	"github.com/poornimasewak/nook/domain/message"
	"github.com/poornimasewak/nook/domain/nook"
	"github.com/poornimasewak/nook/domain/user"
)

var (
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrNookNotFound is returned when a nook record does not exist.
	ErrNookNotFound = errors.New("nook not found")
	// ErrNotMember is returned when the acting user is not a member of the nook.
	ErrNotMember = errors.New("not a member of this nook")
	// ErrNoNewMembers is returned when every requested user is already a member.
	ErrNoNewMembers = errors.New("all selected users are already members")
)

// Store is the full persistence surface consumed by the API and the relay.
type Store interface {
	// Users
	UserByID(ctx context.Context, id string) (*user.User, error)
	FindOrCreateByEmail(ctx context.Context, email, name string) (*user.User, error)
	FindOrCreateByPhone(ctx context.Context, phoneNumber string) (*user.User, error)
	SetUserOnline(ctx context.Context, id string, online bool) error
	UpdateUserName(ctx context.Context, id, name string) error
	UpdateUserProfile(ctx context.Context, id string, name, displayPicture *string) (*user.User, error)
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]user.User, error)
	DeactivateUser(ctx context.Context, id string) error
	Friends(ctx context.Context, userID string) ([]user.User, error)
	AddFriend(ctx context.Context, userID, friendID string) error

	// Nooks and membership
	CreateNook(ctx context.Context, n *nook.Nook, memberIDs []string) error
	NookByID(ctx context.Context, id string) (*nook.Nook, error)
	NooksForUser(ctx context.Context, userID string) ([]nook.Nook, error)
	RenameNook(ctx context.Context, id, name string) error
	DeleteNook(ctx context.Context, id string) error
	NookMembers(ctx context.Context, nookID string) ([]user.User, error)
	NookAdmins(ctx context.Context, nookID string) ([]user.User, error)
	IsNookMember(ctx context.Context, nookID, userID string) (bool, error)
	AddNookMembers(ctx context.Context, nookID string, userIDs []string) ([]string, error)
	RemoveNookMember(ctx context.Context, nookID, userID string) error
	TouchNookActivity(ctx context.Context, nookID string) error
	UserNookIDs(ctx context.Context, userID string) ([]string, error)

	// Messages
	InsertMessage(ctx context.Context, msg *message.Message) error
	RecentMessages(ctx context.Context, nookID string, limit int) ([]message.Message, error)
	MessagesPage(ctx context.Context, nookID string, page, limit int) ([]message.Message, bool, error)

	Ping(ctx context.Context) error
	Close() error
}
