package repository

import (
	"LinkLoom-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	// ErrCodeNotFound is returned when no active record resolves the code.
	ErrCodeNotFound = errors.New("code not found")
	// ErrDuplicateCode is the storage-level rejection of an insert whose code
	// is already taken. This is the authoritative backstop for the check-then-
	// insert race in the creation flow; callers treat it as normal control
	// flow, not a crash.
	ErrDuplicateCode = errors.New("code already exists")
	// ErrLinkNotFound is returned for id-based lookups that miss.
	ErrLinkNotFound = errors.New("link not found")
	// ErrUserNotFound is returned by user lookups that miss.
	ErrUserNotFound = errors.New("user not found")
)

// Storage is the single shared mutable resource of the service. All mutation
// of link records goes through it, and it provides the atomicity guarantees
// the resolution core relies on (unique code constraint, atomic click
// increment).
type Storage interface {
	// User methods
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error
	GetSubscriptionType(ctx context.Context, id int16) (*domain.SubscriptionType, error)

	// Link methods
	InsertLink(ctx context.Context, link *domain.Link) error
	FindByCode(ctx context.Context, code string) (*domain.Link, error)
	FindByID(ctx context.Context, id int64) (*domain.Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	DeleteLink(ctx context.Context, id int64) error
	ListUserLinks(ctx context.Context, userID int64) ([]*domain.Link, error)
	SetQRAssetRef(ctx context.Context, id int64, ref string) error

	// Click accounting
	IncrementClickCount(ctx context.Context, id int64) error
	CreateClickEvent(ctx context.Context, event *domain.ClickEvent) error
	ClicksByDevice(ctx context.Context, linkID int64) (map[string]int64, error)
}
