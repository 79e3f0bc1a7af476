package postgres

import (
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage implements repository.Storage on top of GORM. It is used both with
// the postgres driver in production and with the sqlite driver in tests; both
// honor the unique indexes that back code uniqueness.
type Storage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new GORM-backed storage instance.
func New(db *gorm.DB, log *zap.Logger) *Storage {
	return &Storage{
		db:  db,
		log: log,
	}
}

// --- User Methods ---

func (s *Storage) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user with email %s already exists", user.Email)
		}
		s.log.Error("failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Storage) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (s *Storage) GetSubscriptionType(ctx context.Context, id int16) (*domain.SubscriptionType, error) {
	var st domain.SubscriptionType
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription type %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription type: %w", err)
	}
	return &st, nil
}

// --- Link Methods ---

// InsertLink persists a new link record. A unique-constraint rejection is
// translated to repository.ErrDuplicateCode so the creation flow can re-derive
// a candidate instead of failing.
func (s *Storage) InsertLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.Debug("insert lost the code race", zap.String("code", link.Code().Value))
			return repository.ErrDuplicateCode
		}
		s.log.Error("failed to insert link", zap.String("code", link.Code().Value), zap.Error(err))
		return fmt.Errorf("failed to insert link: %w", err)
	}

	s.log.Info("inserted link",
		zap.Int64("link_id", link.ID),
		zap.String("code", link.Code().Value),
		zap.String("origin", string(link.Code().Origin)))
	return nil
}

// FindByCode resolves a code against the union of both code columns. Soft-
// deleted records do not resolve.
func (s *Storage) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).
		Where("system_code = ? OR custom_slug = ?", code, code).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to find link by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return &link, nil
}

func (s *Storage) FindByID(ctx context.Context, id int64) (*domain.Link, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).First(&link, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to find link by id", zap.Int64("link_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return &link, nil
}

// CodeExists checks the union of both code columns, including soft-deleted
// records: a deleted record keeps its codes reserved forever.
func (s *Storage) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&domain.Link{}).
		Where("system_code = ? OR custom_slug = ?", code, code).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to check code existence", zap.String("code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return count > 0, nil
}

// DeleteLink soft-deletes the record. Its codes stay reserved (CodeExists runs
// unscoped) so a dead short link is never silently reassigned.
func (s *Storage) DeleteLink(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&domain.Link{}, id)
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("deleted link", zap.Int64("link_id", id))
	return nil
}

func (s *Storage) ListUserLinks(ctx context.Context, userID int64) ([]*domain.Link, error) {
	var links []*domain.Link
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&links).Error
	if err != nil {
		s.log.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list user links: %w", err)
	}
	return links, nil
}

// SetQRAssetRef attaches a QR artifact reference produced by the side process.
func (s *Storage) SetQRAssetRef(ctx context.Context, id int64, ref string) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", id).
		Update("qr_asset_ref", ref)
	if result.Error != nil {
		s.log.Error("failed to set qr asset ref", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to set qr asset ref: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

// --- Click Accounting ---

// IncrementClickCount bumps the counter in a single UPDATE so concurrent
// redirects never lose updates.
func (s *Storage) IncrementClickCount(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + 1"))
	if result.Error != nil {
		s.log.Error("failed to increment click count", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to increment click count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

// CreateClickEvent appends one detailed click log entry. It is intentionally
// not part of the same transaction as IncrementClickCount.
func (s *Storage) CreateClickEvent(ctx context.Context, event *domain.ClickEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.log.Error("failed to create click event", zap.Int64("link_id", event.LinkID), zap.Error(err))
		return fmt.Errorf("failed to create click event: %w", err)
	}
	return nil
}

// ClicksByDevice returns per-device click totals for the stats surface.
func (s *Storage) ClicksByDevice(ctx context.Context, linkID int64) (map[string]int64, error) {
	var results []struct {
		DeviceType string `gorm:"column:device_type"`
		Count      int64  `gorm:"column:count"`
	}

	err := s.db.WithContext(ctx).
		Model(&domain.ClickEvent{}).
		Select("COALESCE(device_type, 'unknown') as device_type, count(*) as count").
		Where("link_id = ?", linkID).
		Group("device_type").
		Find(&results).Error
	if err != nil {
		s.log.Error("failed to get clicks by device", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to get clicks by device: %w", err)
	}

	clicksByDevice := make(map[string]int64)
	for _, result := range results {
		clicksByDevice[result.DeviceType] = result.Count
	}
	return clicksByDevice, nil
}
