package domain

import "time"

type User struct {
	ID               string
	TelegramUsername string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastLoginAt      *time.Time
}

// VerificationToken is one outstanding single-use login credential.
// Only the sha256 lookup hash is ever stored; the raw secret travels
// inside the Telegram login link.
type VerificationToken struct {
	UserID    string
	TokenHash string
	CreatedAt time.Time
}

type Plan struct {
	ID          string
	UserID      string
	Title       string
	Description string
	// CreatedAt doubles as the displayed occurrence time of the plan.
	CreatedAt time.Time
	UpdatedAt time.Time
}
