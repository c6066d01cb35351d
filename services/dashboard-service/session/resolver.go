// Package session resolves dashboard logins and tokens into verified
// admin identities. Every rejection is recorded on the security_events
// trail and forwarded to the audit queue.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"maintenance-dashboard/pkg/middleware"
	"maintenance-dashboard/pkg/store"
	"maintenance-dashboard/services/dashboard-service/models"
)

const (
	usersPath          = "users"
	securityEventsPath = "security_events"
	roleAdmin          = "ADMIN"
	tokenTTL           = 24 * time.Hour
)

var (
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrUnverifiedEmail = errors.New("email address is not verified")
	ErrNoRecord        = errors.New("no account record for this user")
	ErrNotAdmin        = errors.New("account does not hold the admin role")
	ErrNotApproved     = errors.New("admin account is awaiting approval")
	ErrRoleInactive    = errors.New("admin role has been deactivated")
)

// Identity is a fully verified admin.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Resolver checks tokens and credentials against the users collection.
type Resolver struct {
	st store.Store

	// Publish, when set, forwards security events to the audit queue in
	// addition to the store trail.
	Publish func(models.SecurityEvent)

	now func() int64
}

func NewResolver(st store.Store) *Resolver {
	return &Resolver{
		st:  st,
		now: func() int64 { return time.Now().UnixMilli() },
	}
}

// Resolve admits the token's subject to the dashboard. Access requires
// a verified email, a user record, the ADMIN role, approval, and an
// active role flag; each check fails with its own error so the login
// screen can explain the rejection.
func (r *Resolver) Resolve(ctx context.Context, claims *middleware.UserClaims) (Identity, error) {
	if !claims.EmailVerified {
		r.record(ctx, claims.Email, "unverified_email_access", "dashboard access with unverified email")
		return Identity{}, ErrUnverifiedEmail
	}

	snap, err := r.st.Get(ctx, usersPath+"/"+claims.UserID)
	if err == store.ErrAbsent || (err == nil && !snap.Exists()) {
		r.record(ctx, claims.Email, "unknown_account_access", "dashboard access without a user record")
		return Identity{}, ErrNoRecord
	}
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load user record: %w", err)
	}

	var user models.User
	if err := snap.Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("failed to decode user record: %w", err)
	}

	if !strings.EqualFold(user.Role, roleAdmin) {
		r.record(ctx, user.Email, "unauthorized_admin_access", "dashboard access without the admin role")
		return Identity{}, ErrNotAdmin
	}
	if !user.Approved {
		r.record(ctx, user.Email, "unapproved_admin_access", "dashboard access before admin approval")
		return Identity{}, ErrNotApproved
	}
	if !user.RoleActive {
		r.record(ctx, user.Email, "inactive_admin_access", "dashboard access with deactivated admin role")
		return Identity{}, ErrRoleInactive
	}

	if err := r.st.Update(ctx, usersPath+"/"+claims.UserID, map[string]interface{}{
		"lastAccess": r.now(),
	}); err != nil {
		log.Printf("[WARN] Failed to stamp lastAccess for %s: %v", claims.UserID, err)
	}

	return Identity{
		UID:   claims.UserID,
		Email: user.Email,
		Name:  displayName(user, claims),
		Role:  user.Role,
	}, nil
}

// Login verifies credentials against the users collection and issues a
// dashboard token. The subject must pass the same admin gate as
// Resolve.
func (r *Resolver) Login(ctx context.Context, email, password string) (string, Identity, error) {
	children, err := r.st.GetChildren(ctx, usersPath)
	if err != nil {
		return "", Identity{}, fmt.Errorf("failed to load users: %w", err)
	}

	var (
		uid  string
		user models.User
	)
	for _, child := range children {
		var u models.User
		if err := child.Snapshot.Decode(&u); err != nil {
			continue
		}
		if strings.EqualFold(u.Email, email) {
			uid = child.Key
			user = u
			break
		}
	}
	if uid == "" {
		r.record(ctx, email, "failed_login", "login with unknown email")
		return "", Identity{}, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		r.record(ctx, email, "failed_login", "login with wrong password")
		return "", Identity{}, ErrBadCredentials
	}

	claims := &middleware.UserClaims{
		UserID:        uid,
		Email:         user.Email,
		Name:          user.DisplayName,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}

	identity, err := r.Resolve(ctx, claims)
	if err != nil {
		return "", Identity{}, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(middleware.JWTSecret()))
	if err != nil {
		return "", Identity{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, identity, nil
}

func (r *Resolver) record(ctx context.Context, email, eventType, details string) {
	ev := models.SecurityEvent{
		Email:     email,
		EventType: eventType,
		Details:   details,
		Timestamp: r.now(),
		Platform:  "web_dashboard",
	}
	if _, err := r.st.Push(ctx, securityEventsPath, ev); err != nil {
		log.Printf("[WARN] Failed to record security event %s: %v", eventType, err)
	}
	if r.Publish != nil {
		r.Publish(ev)
	}
}

func displayName(user models.User, claims *middleware.UserClaims) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	if claims.Name != "" {
		return claims.Name
	}
	if i := strings.IndexByte(user.Email, '@'); i > 0 {
		return user.Email[:i]
	}
	return user.Email
}
