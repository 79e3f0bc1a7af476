package database

import (
	"LinkLoom-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate migrates all domain models and installs the cross-column code
// constraint.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	// Order matters because of foreign keys.
	models := []interface{}{
		&domain.SubscriptionType{},
		&domain.User{},
		&domain.Link{},
		&domain.ClickEvent{},
	}

	for _, model := range models {
		modelName := fmt.Sprintf("%T", model)
		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model", zap.String("model", modelName), zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
		log.Debug("model migrated", zap.String("model", modelName))
	}

	// The per-column unique indexes cannot stop one record claiming "x" as a
	// system code while another claims "x" as a custom slug. Exactly one of
	// the two columns is set per record, so a unique expression index over
	// their coalescence spans the whole namespace. This is the authoritative
	// uniqueness constraint; the application-level pre-check is an
	// optimization only. Works on both postgres and sqlite.
	indexSQL := "CREATE UNIQUE INDEX IF NOT EXISTS idx_links_active_code ON links (COALESCE(system_code, custom_slug))"
	if err := db.Exec(indexSQL).Error; err != nil {
		log.Error("failed to create active-code unique index", zap.Error(err))
		return fmt.Errorf("failed to create active-code unique index: %w", err)
	}

	log.Info("database auto-migration completed", zap.Int("migrated_models", len(models)))
	return nil
}

// SeedData inserts the default plan tiers if none exist.
func SeedData(db *gorm.DB, log *zap.Logger) error {
	var count int64
	db.Model(&domain.SubscriptionType{}).Count(&count)
	if count > 0 {
		log.Info("subscription types already exist, skipping seeding", zap.Int64("existing_count", count))
		return nil
	}

	subscriptionTypes := []domain.SubscriptionType{
		{
			Name:             "free",
			DisplayName:      "Free Plan",
			MaxLinksPerMonth: toInt(50),
			CustomSlugs:      false,
			APIAccess:        false,
			IsActive:         true,
		},
		{
			Name:             "pro",
			DisplayName:      "Pro Plan",
			MaxLinksPerMonth: nil, // unlimited
			CustomSlugs:      true,
			APIAccess:        true,
			IsActive:         true,
		},
	}

	if err := db.Create(&subscriptionTypes).Error; err != nil {
		log.Error("failed to seed subscription types", zap.Error(err))
		return fmt.Errorf("failed to seed subscription types: %w", err)
	}

	log.Info("database seeding completed", zap.Int("subscription_types_created", len(subscriptionTypes)))
	return nil
}

// toInt is a helper for nullable int columns.
func toInt(val int) *int {
	return &val
}
