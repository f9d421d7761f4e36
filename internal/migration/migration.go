package migration

import (
	"github.com/stampworks/loyalty/internal/cleanup"
	customerdomain "github.com/stampworks/loyalty/internal/customer/domain"
	merchantdomain "github.com/stampworks/loyalty/internal/merchant/domain"
	programdomain "github.com/stampworks/loyalty/internal/program/domain"
	rewarddomain "github.com/stampworks/loyalty/internal/reward/domain"
	tierdomain "github.com/stampworks/loyalty/internal/tier/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema from the model structs. The table
// set is small and append-only, so declarative auto-migration beats a
// versioned migration directory here.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&merchantdomain.Merchant{},
		&tierdomain.Tier{},
		&customerdomain.Customer{},
		&customerdomain.ProgramEvent{},
		&rewarddomain.Reward{},
		&rewarddomain.Redemption{},
		&programdomain.Program{},
		&cleanup.Job{},
	)
	if err != nil {
		return err
	}
	log.Info("schema migrated")
	return nil
}
