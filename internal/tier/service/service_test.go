package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	customerdomain "github.com/stampworks/loyalty/internal/customer/domain"
	"github.com/stampworks/loyalty/internal/rule"
	"github.com/stampworks/loyalty/internal/tier/domain"
	"github.com/stampworks/loyalty/internal/tier/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupTierService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Tier{}, &customerdomain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db, node
}

func spendCondition(amount int64) rule.Condition {
	return rule.Condition{Kind: rule.MinimumLifetimeSpend, Amount: decimal.NewFromInt(amount), Enabled: true}
}

func TestEnsureDefaultIdempotent(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()

	first, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, DefaultTierName, first.Name)
	assert.True(t, first.IsDefault)
	assert.True(t, first.IsActive)
	assert.Equal(t, 0, first.Order)

	second, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	tiers, err := svc.List(ctx, merchantID)
	require.NoError(t, err)
	assert.Len(t, tiers, 1)
}

func TestSaveTierValidation(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	_, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	_, err = svc.Save(ctx, domain.SaveTierRequest{MerchantID: merchantID, Name: "  ", Order: 1})
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = svc.Save(ctx, domain.SaveTierRequest{MerchantID: merchantID, Name: "Underground", Order: 0})
	assert.ErrorIs(t, err, domain.ErrOrderBelowDefault)

	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Also Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{spendCondition(150)},
	})
	assert.ErrorIs(t, err, domain.ErrOrderTaken)
}

func TestSaveTierDemotesWhenAllConditionsDisabled(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	_, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	res, err := svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{
			{Kind: rule.MinimumTransactions, Value: 5, Enabled: false},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Demoted, "demotion is a warning, not an error")
	assert.False(t, res.Tier.IsActive)
}

func TestSaveTierMonotonicActivation(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	_, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	silver, err := svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: false,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	// Gold cannot activate while Silver below it is inactive.
	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Gold", Order: 2, IsActive: true,
		Conditions: []rule.Condition{spendCondition(500)},
	})
	assert.ErrorIs(t, err, domain.ErrLowerTierInactive)

	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, ID: silver.Tier.ID.String(), Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	gold, err := svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Gold", Order: 2, IsActive: true,
		Conditions: []rule.Condition{spendCondition(500)},
	})
	require.NoError(t, err)

	// Silver cannot deactivate while active Gold sits above it.
	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, ID: silver.Tier.ID.String(), Name: "Silver", Order: 1, IsActive: false,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	assert.ErrorIs(t, err, domain.ErrHigherTierActive)

	// Deactivate top-down: Gold first, then Silver.
	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, ID: gold.Tier.ID.String(), Name: "Gold", Order: 2, IsActive: false,
		Conditions: []rule.Condition{spendCondition(500)},
	})
	require.NoError(t, err)
	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, ID: silver.Tier.ID.String(), Name: "Silver", Order: 1, IsActive: false,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)
}

func TestSaveDefaultTierRejected(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	def, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, ID: def.ID.String(), Name: "Renamed", Order: 5, IsActive: true,
	})
	assert.ErrorIs(t, err, domain.ErrDefaultTierImmutable)
}

func TestClassifyPicksHighestMatchingTier(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	def, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	silver, err := svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	gold, err := svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Gold", Order: 2, IsActive: true,
		Conditions: []rule.Condition{
			spendCondition(500),
			{Kind: rule.MinimumTransactions, Value: 50, Enabled: true},
		},
	})
	require.NoError(t, err)

	// Below every threshold: default.
	got, err := svc.Classify(ctx, merchantID, rule.Snapshot{LifetimeSpend: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	// Meets Silver only.
	got, err = svc.Classify(ctx, merchantID, rule.Snapshot{LifetimeSpend: decimal.NewFromInt(150)})
	require.NoError(t, err)
	assert.Equal(t, silver.Tier.ID, got.ID)

	// OR semantics: transaction count alone qualifies for Gold even with
	// low spend.
	got, err = svc.Classify(ctx, merchantID, rule.Snapshot{
		LifetimeSpend:        decimal.NewFromInt(150),
		LifetimeTransactions: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, gold.Tier.ID, got.ID)
}

func TestClassifyIdempotent(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	_, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	snap := rule.Snapshot{LifetimeSpend: decimal.NewFromInt(200)}
	first, err := svc.Classify(ctx, merchantID, snap)
	require.NoError(t, err)
	second, err := svc.Classify(ctx, merchantID, snap)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestClassifySkipsInactiveTiers(t *testing.T) {
	svc, _, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()
	def, err := svc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)

	_, err = svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: false,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	got, err := svc.Classify(ctx, merchantID, rule.Snapshot{LifetimeSpend: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)
}

func TestDeleteTierProtections(t *testing.T) {
	svc, db, node := setupTierService(t)
	ctx := context.Background()
	merchantID := node.Generate()
	def, err := svc.EnsureDefault(ctx, merchantID.String())
	require.NoError(t, err)

	err = svc.Delete(ctx, merchantID.String(), def.ID.String())
	assert.ErrorIs(t, err, domain.ErrDefaultTierProtected)

	silver, err := svc.Save(ctx, domain.SaveTierRequest{
		MerchantID: merchantID.String(), Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{spendCondition(100)},
	})
	require.NoError(t, err)

	customer := customerdomain.Customer{
		ID:            node.Generate(),
		MerchantID:    merchantID,
		Name:          "Ada",
		Email:         "ada@example.com",
		JoinedAt:      time.Now().UTC(),
		LifetimeSpend: decimal.Zero,
		CurrentTierID: silver.Tier.ID,
	}
	require.NoError(t, db.Create(&customer).Error)

	err = svc.Delete(ctx, merchantID.String(), silver.Tier.ID.String())
	assert.ErrorIs(t, err, domain.ErrTierInUse)

	require.NoError(t, db.Model(&customerdomain.Customer{}).
		Where("id = ?", customer.ID).
		Update("current_tier_id", def.ID).Error)

	require.NoError(t, svc.Delete(ctx, merchantID.String(), silver.Tier.ID.String()))

	err = svc.Delete(ctx, merchantID.String(), silver.Tier.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
