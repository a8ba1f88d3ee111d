package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poornimasewak/nook/domain/message"
	"github.com/poornimasewak/nook/domain/nook"
	"github.com/poornimasewak/nook/domain/user"
)

// PostgresStore implements Store against the hosted PostgreSQL database.
// The schema is owned by the hosted service; this store only queries it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects a pool to the given database URL and verifies it.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

const userColumns = `id, name, COALESCE(email, ''), COALESCE(phone_number, ''), COALESCE(display_picture, ''), is_online, is_active, last_seen, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.DisplayPicture,
		&u.IsOnline, &u.IsActive, &u.LastSeen, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) collectUsers(ctx context.Context, query string, args ...any) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Users

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*user.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) FindOrCreateByEmail(ctx context.Context, email, name string) (*user.User, error) {
	existing, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err == nil {
		_, err = s.pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, existing.ID)
		return existing, err
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, is_active, last_login, created_at, updated_at)
		 VALUES ($1, $2, $3, true, now(), now(), now())`, id, name, email)
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, id)
}

func (s *PostgresStore) FindOrCreateByPhone(ctx context.Context, phoneNumber string) (*user.User, error) {
	existing, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phoneNumber))
	if err == nil {
		_, err = s.pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, existing.ID)
		return existing, err
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, name, phone_number, is_active, last_login, created_at, updated_at)
		 VALUES ($1, 'User', $2, true, now(), now(), now())`, id, phoneNumber)
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, id)
}

func (s *PostgresStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET is_online = $2, last_seen = now() WHERE id = $1`, id, online)
	return err
}

func (s *PostgresStore) UpdateUserName(ctx context.Context, id, name string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	return err
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id string, name, displayPicture *string) (*user.User, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = COALESCE($2, name), display_picture = COALESCE($3, display_picture), updated_at = now()
		 WHERE id = $1`, id, name, displayPicture)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}
	return s.UserByID(ctx, id)
}

func (s *PostgresStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]user.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	return s.collectUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE is_active AND id <> $1 AND (name ILIKE $2 OR email ILIKE $2)
		 LIMIT $3`, excludeID, pattern, limit)
}

func (s *PostgresStore) DeactivateUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET is_active = false, is_online = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Friends(ctx context.Context, userID string) ([]user.User, error) {
	return s.collectUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE is_active AND id IN (SELECT friend_id FROM friends WHERE user_id = $1)`, userID)
}

func (s *PostgresStore) AddFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO friends (id, user_id, friend_id, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, friend_id) DO NOTHING`,
		uuid.New().String(), userID, friendID)
	return err
}

// Nooks and membership

func (s *PostgresStore) CreateNook(ctx context.Context, n *nook.Nook, memberIDs []string) error {
	now := time.Now()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.LastActivity.IsZero() {
		n.LastActivity = now
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO nooks (id, name, description, created_by, last_activity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.Name, n.Description, n.CreatedBy, n.LastActivity, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(memberIDs))
	for _, userID := range memberIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		_, err = tx.Exec(ctx,
			`INSERT INTO nook_members (id, nook_id, user_id, is_admin, joined_at)
			 VALUES ($1, $2, $3, $4, now())`,
			uuid.New().String(), n.ID, userID, userID == n.CreatedBy)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanNook(row pgx.Row) (*nook.Nook, error) {
	var n nook.Nook
	err := row.Scan(&n.ID, &n.Name, &n.Description, &n.CreatedBy,
		&n.LastActivity, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNookNotFound
		}
		return nil, err
	}
	return &n, nil
}

const nookColumns = `id, name, COALESCE(description, ''), created_by, last_activity, created_at, updated_at`

func (s *PostgresStore) NookByID(ctx context.Context, id string) (*nook.Nook, error) {
	return scanNook(s.pool.QueryRow(ctx,
		`SELECT `+nookColumns+` FROM nooks WHERE id = $1`, id))
}

func (s *PostgresStore) NooksForUser(ctx context.Context, userID string) ([]nook.Nook, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+nookColumns+` FROM nooks
		 WHERE id IN (SELECT nook_id FROM nook_members WHERE user_id = $1 AND NOT is_archived)
		 ORDER BY last_activity DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nooks := []nook.Nook{}
	for rows.Next() {
		n, err := scanNook(rows)
		if err != nil {
			return nil, err
		}
		nooks = append(nooks, *n)
	}
	return nooks, rows.Err()
}

func (s *PostgresStore) RenameNook(ctx context.Context, id, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nooks SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNookNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteNook(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM nook_members WHERE nook_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE nook_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM nooks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNookNotFound
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) NookMembers(ctx context.Context, nookID string) ([]user.User, error) {
	return s.collectUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id IN (SELECT user_id FROM nook_members WHERE nook_id = $1)`, nookID)
}

func (s *PostgresStore) NookAdmins(ctx context.Context, nookID string) ([]user.User, error) {
	return s.collectUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id IN (SELECT user_id FROM nook_members WHERE nook_id = $1 AND is_admin)`, nookID)
}

func (s *PostgresStore) IsNookMember(ctx context.Context, nookID, userID string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM nook_members WHERE nook_id = $1 AND user_id = $2`,
		nookID, userID).Scan(&count)
	return count > 0, err
}

func (s *PostgresStore) AddNookMembers(ctx context.Context, nookID string, userIDs []string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM nook_members WHERE nook_id = $1`, nookID)
	if err != nil {
		return nil, err
	}
	existingSet := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		existingSet[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var added []string
	for _, userID := range userIDs {
		if existingSet[userID] {
			continue
		}
		existingSet[userID] = true
		added = append(added, userID)
	}
	if len(added) == 0 {
		return nil, ErrNoNewMembers
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	for _, userID := range added {
		_, err = tx.Exec(ctx,
			`INSERT INTO nook_members (id, nook_id, user_id, joined_at) VALUES ($1, $2, $3, now())`,
			uuid.New().String(), nookID, userID)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return added, nil
}

func (s *PostgresStore) RemoveNookMember(ctx context.Context, nookID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM nook_members WHERE nook_id = $1 AND user_id = $2`, nookID, userID)
	return err
}

func (s *PostgresStore) TouchNookActivity(ctx context.Context, nookID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE nooks SET last_activity = now() WHERE id = $1`, nookID)
	return err
}

func (s *PostgresStore) UserNookIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT nook_id FROM nook_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Messages

const messageColumns = `m.id, m.nook_id, m.sender_id, m.message_type, m.content, m.reply_to, m.is_deleted, m.timestamp,
	COALESCE(u.id, m.sender_id), COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.display_picture, ''), COALESCE(u.is_online, false)`

func scanMessage(rows pgx.Rows) (message.Message, error) {
	var m message.Message
	err := rows.Scan(&m.ID, &m.NookID, &m.SenderID, &m.MessageType, &m.Content,
		&m.ReplyTo, &m.IsDeleted, &m.Timestamp,
		&m.Sender.ID, &m.Sender.Name, &m.Sender.Email, &m.Sender.DisplayPicture, &m.Sender.IsOnline)
	return m, err
}

func (s *PostgresStore) InsertMessage(ctx context.Context, msg *message.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, nook_id, sender_id, message_type, content, reply_to, is_deleted, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		msg.ID, msg.NookID, msg.SenderID, msg.MessageType, msg.Content, msg.ReplyTo, msg.Timestamp)
	if err != nil {
		return err
	}

	sender, err := s.UserByID(ctx, msg.SenderID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			msg.Sender = user.FallbackProfile(msg.SenderID, "")
			return nil
		}
		return err
	}
	msg.Sender = sender.Profile()
	return nil
}

func (s *PostgresStore) collectMessages(ctx context.Context, query string, args ...any) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []message.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) RecentMessages(ctx context.Context, nookID string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := s.collectMessages(ctx,
		`SELECT `+messageColumns+` FROM messages m
		 LEFT JOIN users u ON u.id = m.sender_id
		 WHERE m.nook_id = $1 AND NOT m.is_deleted
		 ORDER BY m.timestamp DESC
		 LIMIT $2`, nookID, limit)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *PostgresStore) MessagesPage(ctx context.Context, nookID string, page, limit int) ([]message.Message, bool, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	messages, err := s.collectMessages(ctx,
		`SELECT `+messageColumns+` FROM messages m
		 LEFT JOIN users u ON u.id = m.sender_id
		 WHERE m.nook_id = $1 AND NOT m.is_deleted
		 ORDER BY m.timestamp DESC
		 OFFSET $2 LIMIT $3`, nookID, (page-1)*limit, limit)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(messages) == limit
	reverse(messages)
	return messages, hasMore, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
