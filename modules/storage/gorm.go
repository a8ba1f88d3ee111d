package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/poornimasewak/nook/domain/message"
	"github.com/poornimasewak/nook/domain/nook"
	"github.com/poornimasewak/nook/domain/user"
)

// GormStore implements Store on a gorm database handle. It is used with the
// SQLite driver for development and tests.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenSQLite opens (or creates) a SQLite database at path and migrates the
// schema. Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&user.User{}, &user.Friend{}, &nook.Nook{}, &nook.Member{}, &message.Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewGormStore(db), nil
}

// NewGormStore wraps an already-open gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Users

func (s *GormStore) UserByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) FindOrCreateByEmail(ctx context.Context, email, name string) (*user.User, error) {
	var u user.User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if err == nil {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&u).Update("last_login", now).Error; err != nil {
			return nil, err
		}
		u.LastLogin = &now
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	u = user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		IsActive:  true,
		LastLogin: &now,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) FindOrCreateByPhone(ctx context.Context, phoneNumber string) (*user.User, error) {
	var u user.User
	err := s.db.WithContext(ctx).First(&u, "phone_number = ?", phoneNumber).Error
	if err == nil {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&u).Update("last_login", now).Error; err != nil {
			return nil, err
		}
		u.LastLogin = &now
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	u = user.User{
		ID:          uuid.New().String(),
		Name:        "User",
		PhoneNumber: phoneNumber,
		IsActive:    true,
		LastLogin:   &now,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	return s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_online": online, "last_seen": time.Now()}).Error
}

func (s *GormStore) UpdateUserName(ctx context.Context, id, name string) error {
	return s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Update("name", name).Error
}

func (s *GormStore) UpdateUserProfile(ctx context.Context, id string, name, displayPicture *string) (*user.User, error) {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if displayPicture != nil {
		updates["display_picture"] = *displayPicture
	}
	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.UserByID(ctx, id)
}

func (s *GormStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]user.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	var users []user.User
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id <> ?", excludeID).
		Where("name LIKE ? OR email LIKE ?", pattern, pattern).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (s *GormStore) DeactivateUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "is_online": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormStore) Friends(ctx context.Context, userID string) ([]user.User, error) {
	var friendIDs []string
	if err := s.db.WithContext(ctx).Model(&user.Friend{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &friendIDs).Error; err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return []user.User{}, nil
	}

	var friends []user.User
	err := s.db.WithContext(ctx).
		Where("id IN ?", friendIDs).
		Where("is_active = ?", true).
		Find(&friends).Error
	return friends, err
}

func (s *GormStore) AddFriend(ctx context.Context, userID, friendID string) error {
	var existing user.Friend
	err := s.db.WithContext(ctx).
		First(&existing, "user_id = ? AND friend_id = ?", userID, friendID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.db.WithContext(ctx).Create(&user.Friend{
		ID:       uuid.New().String(),
		UserID:   userID,
		FriendID: friendID,
	}).Error
}

// Nooks and membership

func (s *GormStore) CreateNook(ctx context.Context, n *nook.Nook, memberIDs []string) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.LastActivity.IsZero() {
		n.LastActivity = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		members := make([]nook.Member, 0, len(memberIDs))
		seen := make(map[string]bool, len(memberIDs))
		for _, userID := range memberIDs {
			if seen[userID] {
				continue
			}
			seen[userID] = true
			members = append(members, nook.Member{
				ID:       uuid.New().String(),
				NookID:   n.ID,
				UserID:   userID,
				IsAdmin:  userID == n.CreatedBy,
				JoinedAt: time.Now(),
			})
		}
		if len(members) == 0 {
			return nil
		}
		return tx.Create(&members).Error
	})
}

func (s *GormStore) NookByID(ctx context.Context, id string) (*nook.Nook, error) {
	var n nook.Nook
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNookNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *GormStore) NooksForUser(ctx context.Context, userID string) ([]nook.Nook, error) {
	var nookIDs []string
	if err := s.db.WithContext(ctx).Model(&nook.Member{}).
		Where("user_id = ? AND is_archived = ?", userID, false).
		Pluck("nook_id", &nookIDs).Error; err != nil {
		return nil, err
	}
	if len(nookIDs) == 0 {
		return []nook.Nook{}, nil
	}

	var nooks []nook.Nook
	err := s.db.WithContext(ctx).
		Where("id IN ?", nookIDs).
		Order("last_activity DESC").
		Find(&nooks).Error
	return nooks, err
}

func (s *GormStore) RenameNook(ctx context.Context, id, name string) error {
	result := s.db.WithContext(ctx).Model(&nook.Nook{}).Where("id = ?", id).
		Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNookNotFound
	}
	return nil
}

func (s *GormStore) DeleteNook(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("nook_id = ?", id).Delete(&nook.Member{}).Error; err != nil {
			return err
		}
		if err := tx.Where("nook_id = ?", id).Delete(&message.Message{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&nook.Nook{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNookNotFound
		}
		return nil
	})
}

func (s *GormStore) NookMembers(ctx context.Context, nookID string) ([]user.User, error) {
	var memberIDs []string
	if err := s.db.WithContext(ctx).Model(&nook.Member{}).
		Where("nook_id = ?", nookID).
		Pluck("user_id", &memberIDs).Error; err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return []user.User{}, nil
	}

	var members []user.User
	err := s.db.WithContext(ctx).Where("id IN ?", memberIDs).Find(&members).Error
	return members, err
}

func (s *GormStore) NookAdmins(ctx context.Context, nookID string) ([]user.User, error) {
	var adminIDs []string
	if err := s.db.WithContext(ctx).Model(&nook.Member{}).
		Where("nook_id = ? AND is_admin = ?", nookID, true).
		Pluck("user_id", &adminIDs).Error; err != nil {
		return nil, err
	}
	if len(adminIDs) == 0 {
		return []user.User{}, nil
	}

	var admins []user.User
	err := s.db.WithContext(ctx).Where("id IN ?", adminIDs).Find(&admins).Error
	return admins, err
}

func (s *GormStore) IsNookMember(ctx context.Context, nookID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&nook.Member{}).
		Where("nook_id = ? AND user_id = ?", nookID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddNookMembers inserts memberships for the given users, skipping anyone
// already a member. It returns the ids actually added; ErrNoNewMembers when
// every requested user was already in the nook.
func (s *GormStore) AddNookMembers(ctx context.Context, nookID string, userIDs []string) ([]string, error) {
	var existing []string
	if err := s.db.WithContext(ctx).Model(&nook.Member{}).
		Where("nook_id = ?", nookID).
		Pluck("user_id", &existing).Error; err != nil {
		return nil, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	var added []string
	var members []nook.Member
	for _, userID := range userIDs {
		if existingSet[userID] {
			continue
		}
		existingSet[userID] = true
		added = append(added, userID)
		members = append(members, nook.Member{
			ID:       uuid.New().String(),
			NookID:   nookID,
			UserID:   userID,
			JoinedAt: time.Now(),
		})
	}
	if len(members) == 0 {
		return nil, ErrNoNewMembers
	}

	if err := s.db.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return added, nil
}

func (s *GormStore) RemoveNookMember(ctx context.Context, nookID, userID string) error {
	return s.db.WithContext(ctx).
		Where("nook_id = ? AND user_id = ?", nookID, userID).
		Delete(&nook.Member{}).Error
}

func (s *GormStore) TouchNookActivity(ctx context.Context, nookID string) error {
	return s.db.WithContext(ctx).Model(&nook.Nook{}).Where("id = ?", nookID).
		Update("last_activity", time.Now()).Error
}

func (s *GormStore) UserNookIDs(ctx context.Context, userID string) ([]string, error) {
	var nookIDs []string
	err := s.db.WithContext(ctx).Model(&nook.Member{}).
		Where("user_id = ?", userID).
		Pluck("nook_id", &nookIDs).Error
	return nookIDs, err
}

// Messages

func (s *GormStore) InsertMessage(ctx context.Context, msg *message.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	return s.hydrateSenders(ctx, nil, msg)
}

// RecentMessages returns the newest limit messages in ascending timestamp
// order, sender profiles attached.
func (s *GormStore) RecentMessages(ctx context.Context, nookID string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []message.Message
	err := s.db.WithContext(ctx).
		Where("nook_id = ? AND is_deleted = ?", nookID, false).
		Order("timestamp DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	reverse(messages)
	if err := s.hydrateSenders(ctx, messages, nil); err != nil {
		return nil, err
	}
	return messages, nil
}

// MessagesPage returns page (1-based) of the nook's history, newest pages
// first but each page in ascending order, plus whether older pages remain.
func (s *GormStore) MessagesPage(ctx context.Context, nookID string, page, limit int) ([]message.Message, bool, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	var messages []message.Message
	err := s.db.WithContext(ctx).
		Where("nook_id = ? AND is_deleted = ?", nookID, false).
		Order("timestamp DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(messages) == limit
	reverse(messages)
	if err := s.hydrateSenders(ctx, messages, nil); err != nil {
		return nil, false, err
	}
	return messages, hasMore, nil
}

// hydrateSenders attaches sender profiles to the given messages. When single
// is non-nil it is updated too (used by InsertMessage, which hydrates the
// caller's record in place).
func (s *GormStore) hydrateSenders(ctx context.Context, messages []message.Message, single *message.Message) error {
	idSet := make(map[string]bool)
	for i := range messages {
		if messages[i].SenderID != message.SystemSenderID {
			idSet[messages[i].SenderID] = true
		}
	}
	if single != nil && single.SenderID != message.SystemSenderID {
		idSet[single.SenderID] = true
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var senders []user.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&senders).Error; err != nil {
		return err
	}
	profiles := make(map[string]user.Profile, len(senders))
	for i := range senders {
		profiles[senders[i].ID] = senders[i].Profile()
	}

	attach := func(m *message.Message) {
		if p, ok := profiles[m.SenderID]; ok {
			m.Sender = p
		} else {
			m.Sender = user.FallbackProfile(m.SenderID, "")
		}
	}
	for i := range messages {
		attach(&messages[i])
	}
	if single != nil {
		attach(single)
	}
	return nil
}

func reverse(messages []message.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
