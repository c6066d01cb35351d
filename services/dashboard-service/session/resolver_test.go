package session

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"maintenance-dashboard/pkg/middleware"
	"maintenance-dashboard/pkg/store"
	"maintenance-dashboard/services/dashboard-service/models"
)

func seedAdmin(t *testing.T, st store.Store, uid string, mutate func(*models.User)) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	user := models.User{
		Email:         uid + "@campus.edu",
		DisplayName:   "Admin " + uid,
		Role:          "ADMIN",
		EmailVerified: true,
		Approved:      true,
		RoleActive:    true,
		PasswordHash:  string(hash),
	}
	if mutate != nil {
		mutate(&user)
	}
	if err := st.Set(context.Background(), "users/"+uid, user); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func securityEvents(t *testing.T, st store.Store) []models.SecurityEvent {
	t.Helper()
	children, err := st.GetChildren(context.Background(), "security_events")
	if err != nil {
		t.Fatalf("GetChildren failed: %v", err)
	}
	out := make([]models.SecurityEvent, 0, len(children))
	for _, c := range children {
		var ev models.SecurityEvent
		if err := c.Snapshot.Decode(&ev); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

func TestLoginIssuesValidToken(t *testing.T) {
	st := store.NewMemoryStore()
	seedAdmin(t, st, "u1", nil)
	r := NewResolver(st)

	token, identity, err := r.Login(context.Background(), "u1@campus.edu", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if identity.UID != "u1" || identity.Name != "Admin u1" || identity.Role != "ADMIN" {
		t.Fatalf("identity = %+v", identity)
	}

	claims, err := middleware.ParseToken(token)
	if err != nil {
		t.Fatalf("issued token rejected: %v", err)
	}
	if claims.UserID != "u1" || !claims.EmailVerified {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	st := store.NewMemoryStore()
	seedAdmin(t, st, "u1", nil)
	r := NewResolver(st)

	if _, _, err := r.Login(context.Background(), "U1@Campus.EDU", "s3cret-pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	st := store.NewMemoryStore()
	seedAdmin(t, st, "u1", nil)
	r := NewResolver(st)
	ctx := context.Background()

	if _, _, err := r.Login(ctx, "nobody@campus.edu", "s3cret-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email = %v, want ErrBadCredentials", err)
	}
	if _, _, err := r.Login(ctx, "u1@campus.edu", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password = %v, want ErrBadCredentials", err)
	}

	events := securityEvents(t, st)
	if len(events) != 2 {
		t.Fatalf("got %d security events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.EventType != "failed_login" {
			t.Fatalf("event type = %q, want failed_login", ev.EventType)
		}
	}
}

func TestAdminGateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.User)
		want   error
	}{
		{"unverified email", func(u *models.User) { u.EmailVerified = false }, ErrUnverifiedEmail},
		{"wrong role", func(u *models.User) { u.Role = "TECHNICIAN" }, ErrNotAdmin},
		{"not approved", func(u *models.User) { u.Approved = false }, ErrNotApproved},
		{"role deactivated", func(u *models.User) { u.RoleActive = false }, ErrRoleInactive},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			seedAdmin(t, st, "u1", c.mutate)
			r := NewResolver(st)

			_, _, err := r.Login(context.Background(), "u1@campus.edu", "s3cret-pass")
			if !errors.Is(err, c.want) {
				t.Fatalf("got %v, want %v", err, c.want)
			}
			if events := securityEvents(t, st); len(events) != 1 {
				t.Fatalf("got %d security events, want 1", len(events))
			}
		})
	}
}

func TestResolveRejectsMissingRecord(t *testing.T) {
	st := store.NewMemoryStore()
	r := NewResolver(st)

	claims := &middleware.UserClaims{UserID: "ghost", Email: "ghost@campus.edu", EmailVerified: true}
	if _, err := r.Resolve(context.Background(), claims); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("got %v, want ErrNoRecord", err)
	}
}

func TestResolveStampsLastAccess(t *testing.T) {
	st := store.NewMemoryStore()
	seedAdmin(t, st, "u1", nil)
	r := NewResolver(st)
	r.now = func() int64 { return 42_000 }

	claims := &middleware.UserClaims{UserID: "u1", Email: "u1@campus.edu", EmailVerified: true}
	if _, err := r.Resolve(context.Background(), claims); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	snap, err := st.Get(context.Background(), "users/u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var user models.User
	if err := snap.Decode(&user); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if user.LastAccess != 42_000 {
		t.Fatalf("lastAccess = %d, want 42000", user.LastAccess)
	}
}

func TestResolvePublishesToQueueHook(t *testing.T) {
	st := store.NewMemoryStore()
	seedAdmin(t, st, "u1", func(u *models.User) { u.Role = "STUDENT" })
	r := NewResolver(st)

	var published []models.SecurityEvent
	r.Publish = func(ev models.SecurityEvent) { published = append(published, ev) }

	claims := &middleware.UserClaims{UserID: "u1", Email: "u1@campus.edu", EmailVerified: true}
	if _, err := r.Resolve(context.Background(), claims); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("got %v, want ErrNotAdmin", err)
	}
	if len(published) != 1 || published[0].EventType != "unauthorized_admin_access" {
		t.Fatalf("published = %+v", published)
	}
}
