package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poornimasewak/nook/domain/message"
	"github.com/poornimasewak/nook/domain/nook"
	"github.com/poornimasewak/nook/domain/user"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *GormStore {
	t.Helper()

	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *GormStore, email, name string) *user.User {
	t.Helper()
	u, err := store.FindOrCreateByEmail(context.Background(), email, name)
	if err != nil {
		t.Fatalf("FindOrCreateByEmail() error = %v", err)
	}
	return u
}

func createTestNook(t *testing.T, store *GormStore, creator *user.User, memberIDs ...string) *nook.Nook {
	t.Helper()
	n := &nook.Nook{
		ID:        "nook-" + creator.ID,
		Name:      "Test Nook",
		CreatedBy: creator.ID,
	}
	if err := store.CreateNook(context.Background(), n, append([]string{creator.ID}, memberIDs...)); err != nil {
		t.Fatalf("CreateNook() error = %v", err)
	}
	return n
}

func TestGormStore_FindOrCreateByEmailIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.FindOrCreateByEmail(ctx, "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("FindOrCreateByEmail() error = %v", err)
	}
	if first.ID == "" || !first.IsActive {
		t.Errorf("created user = %+v, want an active account with an id", first)
	}

	second, err := store.FindOrCreateByEmail(ctx, "ada@example.com", "Different Name")
	if err != nil {
		t.Fatalf("second FindOrCreateByEmail() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new account: %q != %q", second.ID, first.ID)
	}
	if second.Name != "Ada" {
		t.Errorf("second call renamed the account to %q", second.Name)
	}
	if second.LastLogin == nil {
		t.Error("LastLogin not stamped on returning login")
	}
}

func TestGormStore_FindOrCreateByPhone(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u, err := store.FindOrCreateByPhone(ctx, "+15550001111")
	if err != nil {
		t.Fatalf("FindOrCreateByPhone() error = %v", err)
	}
	if u.PhoneNumber != "+15550001111" || u.Name != "User" {
		t.Errorf("created user = %+v, want default-named phone account", u)
	}

	again, err := store.FindOrCreateByPhone(ctx, "+15550001111")
	if err != nil {
		t.Fatalf("second FindOrCreateByPhone() error = %v", err)
	}
	if again.ID != u.ID {
		t.Error("second call created a new account")
	}
}

func TestGormStore_UserByIDNotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.UserByID(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UserByID(ghost) error = %v, want ErrUserNotFound", err)
	}
}

func TestGormStore_UpdateUserProfile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, store, "ada@example.com", "Ada")

	name := "Ada L"
	picture := "https://example.com/ada.png"
	updated, err := store.UpdateUserProfile(ctx, u.ID, &name, &picture)
	if err != nil {
		t.Fatalf("UpdateUserProfile() error = %v", err)
	}
	if updated.Name != "Ada L" || updated.DisplayPicture != picture {
		t.Errorf("updated = %+v, want new name and picture", updated)
	}

	if _, err := store.UpdateUserProfile(ctx, "ghost", &name, nil); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdateUserProfile(ghost) error = %v, want ErrUserNotFound", err)
	}
}

func TestGormStore_SearchUsersExcludesSelfAndInactive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	createTestUser(t, store, "adam@example.com", "Adam")
	gone := createTestUser(t, store, "adelle@example.com", "Adelle")
	if err := store.DeactivateUser(ctx, gone.ID); err != nil {
		t.Fatalf("DeactivateUser() error = %v", err)
	}

	results, err := store.SearchUsers(ctx, "ad", ada.ID, 10)
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(results) != 1 || results[0].Name != "Adam" {
		t.Errorf("SearchUsers() = %+v, want only Adam", results)
	}
}

func TestGormStore_Friends(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	bea := createTestUser(t, store, "bea@example.com", "Bea")

	if err := store.AddFriend(ctx, ada.ID, bea.ID); err != nil {
		t.Fatalf("AddFriend() error = %v", err)
	}
	// Adding the same edge twice is a no-op.
	if err := store.AddFriend(ctx, ada.ID, bea.ID); err != nil {
		t.Fatalf("duplicate AddFriend() error = %v", err)
	}

	friends, err := store.Friends(ctx, ada.ID)
	if err != nil {
		t.Fatalf("Friends() error = %v", err)
	}
	if len(friends) != 1 || friends[0].ID != bea.ID {
		t.Errorf("Friends() = %+v, want just Bea", friends)
	}

	// Friendship is directional.
	reverse, err := store.Friends(ctx, bea.ID)
	if err != nil {
		t.Fatalf("Friends(bea) error = %v", err)
	}
	if len(reverse) != 0 {
		t.Errorf("Friends(bea) = %+v, want empty", reverse)
	}
}

func TestGormStore_CreateNookMembership(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	bea := createTestUser(t, store, "bea@example.com", "Bea")
	n := createTestNook(t, store, ada, bea.ID)

	for _, userID := range []string{ada.ID, bea.ID} {
		member, err := store.IsNookMember(ctx, n.ID, userID)
		if err != nil {
			t.Fatalf("IsNookMember() error = %v", err)
		}
		if !member {
			t.Errorf("IsNookMember(%s) = false, want true", userID)
		}
	}

	admins, err := store.NookAdmins(ctx, n.ID)
	if err != nil {
		t.Fatalf("NookAdmins() error = %v", err)
	}
	if len(admins) != 1 || admins[0].ID != ada.ID {
		t.Errorf("NookAdmins() = %+v, want only the creator", admins)
	}

	nooks, err := store.NooksForUser(ctx, bea.ID)
	if err != nil {
		t.Fatalf("NooksForUser() error = %v", err)
	}
	if len(nooks) != 1 || nooks[0].ID != n.ID {
		t.Errorf("NooksForUser() = %+v, want the created nook", nooks)
	}
}

func TestGormStore_AddNookMembersSkipsExisting(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	bea := createTestUser(t, store, "bea@example.com", "Bea")
	n := createTestNook(t, store, ada)

	added, err := store.AddNookMembers(ctx, n.ID, []string{ada.ID, bea.ID})
	if err != nil {
		t.Fatalf("AddNookMembers() error = %v", err)
	}
	if len(added) != 1 || added[0] != bea.ID {
		t.Errorf("AddNookMembers() = %v, want only Bea", added)
	}

	if _, err := store.AddNookMembers(ctx, n.ID, []string{ada.ID, bea.ID}); !errors.Is(err, ErrNoNewMembers) {
		t.Errorf("AddNookMembers(all existing) error = %v, want ErrNoNewMembers", err)
	}
}

func TestGormStore_RemoveNookMember(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	bea := createTestUser(t, store, "bea@example.com", "Bea")
	n := createTestNook(t, store, ada, bea.ID)

	if err := store.RemoveNookMember(ctx, n.ID, bea.ID); err != nil {
		t.Fatalf("RemoveNookMember() error = %v", err)
	}
	member, err := store.IsNookMember(ctx, n.ID, bea.ID)
	if err != nil {
		t.Fatalf("IsNookMember() error = %v", err)
	}
	if member {
		t.Error("still a member after removal")
	}
}

func TestGormStore_DeleteNookCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	n := createTestNook(t, store, ada)

	msg := &message.Message{NookID: n.ID, SenderID: ada.ID, Content: "hello", MessageType: message.TypeText}
	if err := store.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("InsertMessage() error = %v", err)
	}

	if err := store.DeleteNook(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNook() error = %v", err)
	}
	if _, err := store.NookByID(ctx, n.ID); !errors.Is(err, ErrNookNotFound) {
		t.Errorf("NookByID() after delete error = %v, want ErrNookNotFound", err)
	}
	msgs, err := store.RecentMessages(ctx, n.ID, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages survived nook deletion: %+v", msgs)
	}
	if err := store.DeleteNook(ctx, n.ID); !errors.Is(err, ErrNookNotFound) {
		t.Errorf("second DeleteNook() error = %v, want ErrNookNotFound", err)
	}
}

func TestGormStore_RecentMessagesOrderAndLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	n := createTestNook(t, store, ada)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &message.Message{
			NookID:      n.ID,
			SenderID:    ada.ID,
			Content:     string(rune('a' + i)),
			MessageType: message.TypeText,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertMessage(ctx, msg); err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}
	}

	msgs, err := store.RecentMessages(ctx, n.ID, 3)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("RecentMessages() len = %d, want 3", len(msgs))
	}
	// The newest three, oldest first.
	want := []string{"c", "d", "e"}
	for i, msg := range msgs {
		if msg.Content != want[i] {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msg.Content, want[i])
		}
		if msg.Sender.ID != ada.ID {
			t.Errorf("msgs[%d].Sender.ID = %q, want hydrated sender", i, msg.Sender.ID)
		}
	}
}

func TestGormStore_MessagesPage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	n := createTestNook(t, store, ada)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &message.Message{
			NookID:      n.ID,
			SenderID:    ada.ID,
			Content:     string(rune('a' + i)),
			MessageType: message.TypeText,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertMessage(ctx, msg); err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}
	}

	page1, hasMore, err := store.MessagesPage(ctx, n.ID, 1, 2)
	if err != nil {
		t.Fatalf("MessagesPage(1) error = %v", err)
	}
	if !hasMore {
		t.Error("MessagesPage(1) hasMore = false, want true")
	}
	if len(page1) != 2 || page1[0].Content != "d" || page1[1].Content != "e" {
		t.Errorf("page 1 = %v, want the newest two ascending", contents(page1))
	}

	page3, hasMore, err := store.MessagesPage(ctx, n.ID, 3, 2)
	if err != nil {
		t.Fatalf("MessagesPage(3) error = %v", err)
	}
	if len(page3) != 1 || page3[0].Content != "a" {
		t.Errorf("page 3 = %v, want just the oldest", contents(page3))
	}
	_ = hasMore
}

func TestGormStore_HydratesFallbackForUnknownSender(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	n := createTestNook(t, store, ada)

	msg := &message.Message{NookID: n.ID, SenderID: "deleted-user", Content: "orphan", MessageType: message.TypeText}
	if err := store.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("InsertMessage() error = %v", err)
	}

	msgs, err := store.RecentMessages(ctx, n.ID, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("RecentMessages() len = %d, want 1", len(msgs))
	}
	if msgs[0].Sender.ID != "deleted-user" || msgs[0].Sender.Name == "" {
		t.Errorf("sender = %+v, want a fallback profile", msgs[0].Sender)
	}
}

func TestGormStore_UserNookIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")
	bea := createTestUser(t, store, "bea@example.com", "Bea")
	n1 := createTestNook(t, store, ada, bea.ID)

	n2 := &nook.Nook{ID: "second-nook", Name: "Second", CreatedBy: bea.ID}
	if err := store.CreateNook(ctx, n2, []string{bea.ID}); err != nil {
		t.Fatalf("CreateNook() error = %v", err)
	}

	ids, err := store.UserNookIDs(ctx, bea.ID)
	if err != nil {
		t.Fatalf("UserNookIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("UserNookIDs() = %v, want both nooks", ids)
	}

	ids, err = store.UserNookIDs(ctx, ada.ID)
	if err != nil {
		t.Fatalf("UserNookIDs(ada) error = %v", err)
	}
	if len(ids) != 1 || ids[0] != n1.ID {
		t.Errorf("UserNookIDs(ada) = %v, want [%s]", ids, n1.ID)
	}
}

func TestGormStore_SetUserOnline(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ada := createTestUser(t, store, "ada@example.com", "Ada")

	if err := store.SetUserOnline(ctx, ada.ID, true); err != nil {
		t.Fatalf("SetUserOnline() error = %v", err)
	}
	got, err := store.UserByID(ctx, ada.ID)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if !got.IsOnline {
		t.Error("IsOnline = false after SetUserOnline(true)")
	}
	if got.LastSeen == nil {
		t.Error("LastSeen not stamped")
	}

	if err := store.SetUserOnline(ctx, ada.ID, false); err != nil {
		t.Fatalf("SetUserOnline(false) error = %v", err)
	}
	got, _ = store.UserByID(ctx, ada.ID)
	if got.IsOnline {
		t.Error("IsOnline = true after SetUserOnline(false)")
	}
}

func contents(msgs []message.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
