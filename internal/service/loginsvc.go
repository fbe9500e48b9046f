package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/domain"
)

type UsersStore interface {
	UpsertByTelegramUsername(ctx context.Context, username string, when time.Time) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
}

type VerificationsStore interface {
	Replace(ctx context.Context, userID, tokenHash string, issuedAt time.Time) error
	Consume(ctx context.Context, tokenHash string) (domain.VerificationToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
}

type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// LoginService runs the passwordless Telegram login flow: allow-list
// gate, one-time token issuance, link delivery, and verification.
type LoginService struct {
	Users    UsersStore
	Tokens   VerificationsStore
	Sender   MessageSender
	Allowed  []string // lower-cased allow-list; empty disables login
	BaseURL  *url.URL
	TokenTTL time.Duration
	Now      func() time.Time
}

// Gate normalizes the username and checks it against the allow-list.
// Rejection happens before any store access.
func (s *LoginService) Gate(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", domain.NewValidationError(map[string]string{"username": "required"})
	}
	for _, allowed := range s.Allowed {
		if username == allowed {
			return username, nil
		}
	}
	return "", domain.ErrForbidden
}

// RequestLogin issues a fresh one-time token for the user and delivers
// the login link over Telegram. A delivery failure rolls the token
// back so no undeliverable token stays live.
func (s *LoginService) RequestLogin(ctx context.Context, username string) error {
	if s.Now == nil {
		s.Now = time.Now
	}

	username, err := s.Gate(username)
	if err != nil {
		return err
	}

	u, err := s.Users.UpsertByTelegramUsername(ctx, username, s.Now())
	if err != nil {
		return err
	}

	raw, tokenHash, err := auth.NewLoginToken()
	if err != nil {
		return err
	}

	if err := s.Tokens.Replace(ctx, u.ID, tokenHash, s.Now()); err != nil {
		return err
	}

	if err := s.Sender.SendMessage(ctx, s.loginMessage(raw)); err != nil {
		_ = s.Tokens.DeleteByHash(ctx, tokenHash)
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	return nil
}

// DeliverLoginLink re-sends the login link for an already-issued raw
// token. It re-checks the allow-list but touches no store.
func (s *LoginService) DeliverLoginLink(ctx context.Context, username, rawToken string) error {
	if _, err := s.Gate(username); err != nil {
		return err
	}
	if rawToken == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	if err := s.Sender.SendMessage(ctx, s.loginMessage(rawToken)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}

// Verify consumes a raw token. Consumption deletes the row first, so a
// token is checked at most once: a replayed or expired secret both end
// up as failures against an already-empty table.
func (s *LoginService) Verify(ctx context.Context, rawToken string) (domain.User, error) {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.TokenTTL == 0 {
		s.TokenTTL = 5 * time.Minute
	}

	token, err := s.Tokens.Consume(ctx, auth.HashLoginToken(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrTokenInvalid
		}
		return domain.User{}, err
	}

	if s.Now().Sub(token.CreatedAt) > s.TokenTTL {
		return domain.User{}, domain.ErrTokenExpired
	}

	u, err := s.Users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrTokenInvalid
		}
		return domain.User{}, err
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.Now())

	return u, nil
}

// Logout records the sign-out moment. The cookie pair is cleared by
// the HTTP layer.
func (s *LoginService) Logout(ctx context.Context, userID string) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	return s.Users.SetLastLogin(ctx, userID, s.Now())
}

// GetUserForSession re-validates that the user behind a session proof
// still exists; a user removed out-of-band invalidates all its proofs.
func (s *LoginService) GetUserForSession(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *LoginService) loginMessage(rawToken string) string {
	link := s.loginURL(rawToken)
	minutes := int(s.TokenTTL.Minutes())
	if minutes <= 0 {
		minutes = 5
	}
	return fmt.Sprintf(
		"Hello! Click the link below to sign in to your calendar:\n\n%s\n\nThis link expires in %d minutes.",
		link, minutes,
	)
}

func (s *LoginService) loginURL(rawToken string) string {
	base := s.BaseURL
	if base == nil {
		base = &url.URL{Scheme: "http", Host: "localhost:8080"}
	}
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + "/auth/callback"
	q := url.Values{}
	q.Set("token", rawToken)
	u.RawQuery = q.Encode()
	return u.String()
}
