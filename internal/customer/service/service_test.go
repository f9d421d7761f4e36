package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/clock"
	"github.com/stampworks/loyalty/internal/customer/domain"
	"github.com/stampworks/loyalty/internal/customer/repository"
	rewarddomain "github.com/stampworks/loyalty/internal/reward/domain"
	"github.com/stampworks/loyalty/internal/rule"
	tierdomain "github.com/stampworks/loyalty/internal/tier/domain"
	tierrepo "github.com/stampworks/loyalty/internal/tier/repository"
	tierservice "github.com/stampworks/loyalty/internal/tier/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupCustomerService(t *testing.T) (domain.Service, tierdomain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.Customer{},
		&domain.ProgramEvent{},
		&tierdomain.Tier{},
		&rewarddomain.Redemption{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	tierSvc := tierservice.New(tierservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  tierrepo.Provide(),
	})

	svc := New(Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fc,
		Repo:    repository.Provide(),
		TierSvc: tierSvc,
	})
	return svc, tierSvc, db, node, fc
}

func TestCreateCustomerStartsInDefaultTier(t *testing.T) {
	svc, tierSvc, _, node, _ := setupCustomerService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		MerchantID: merchantID,
		Name:       "Ada",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)

	def, err := tierSvc.EnsureDefault(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, def.ID, customer.CurrentTierID)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{MerchantID: merchantID, Name: "", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.Create(ctx, domain.CreateCustomerRequest{MerchantID: merchantID, Name: "Bob", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestSnapshotDerivedFields(t *testing.T) {
	svc, _, db, node, fc := setupCustomerService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		MerchantID: merchantID,
		Name:       "Ada",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)

	lastVisit := fc.Now().Add(24 * time.Hour * 3)
	require.NoError(t, db.Model(&domain.Customer{}).Where("id = ?", customer.ID).Updates(map[string]any{
		"lifetime_transactions": 12,
		"lifetime_spend":        "345.50",
		"points_balance":        80,
		"last_visit_at":         lastVisit,
	}).Error)

	fc.Advance(10 * 24 * time.Hour)

	snap, err := svc.Snapshot(ctx, merchantID, customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(12), snap.LifetimeTransactions)
	assert.True(t, snap.LifetimeSpend.Equal(decimal.RequireFromString("345.50")))
	assert.Equal(t, int64(80), snap.PointsBalance)
	assert.Equal(t, 10, snap.DaysSinceJoined)
	assert.Equal(t, 7, snap.DaysSinceLastVisit)
	assert.Equal(t, tierservice.DefaultTierName, snap.CurrentTier)
	require.NotNil(t, snap.RedemptionCount)
	assert.Zero(t, *snap.RedemptionCount)
}

func TestSnapshotNeverVisited(t *testing.T) {
	svc, _, _, node, fc := setupCustomerService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		MerchantID: merchantID,
		Name:       "Ada",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)

	fc.Advance(5 * 24 * time.Hour)

	snap, err := svc.Snapshot(ctx, merchantID, customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 5, snap.DaysSinceJoined)
	assert.Equal(t, snap.DaysSinceJoined, snap.DaysSinceLastVisit,
		"a customer who never visited has been away since joining")
}

func TestNotifyMetricsChangedReclassifiesAndPublishes(t *testing.T) {
	svc, tierSvc, db, node, _ := setupCustomerService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		MerchantID: merchantID,
		Name:       "Ada",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)

	silver, err := tierSvc.Save(ctx, tierdomain.SaveTierRequest{
		MerchantID: merchantID, Name: "Silver", Order: 1, IsActive: true,
		Conditions: []rule.Condition{
			{Kind: rule.MinimumLifetimeSpend, Amount: decimal.NewFromInt(100), Enabled: true},
		},
	})
	require.NoError(t, err)

	ch, cancel, err := svc.Watch(ctx, merchantID, customer.ID.String())
	require.NoError(t, err)
	defer cancel()

	seed := <-ch
	assert.Equal(t, tierservice.DefaultTierName, seed.CurrentTier)

	require.NoError(t, db.Model(&domain.Customer{}).
		Where("id = ?", customer.ID).
		Update("lifetime_spend", "150").Error)

	require.NoError(t, svc.NotifyMetricsChanged(ctx, merchantID, customer.ID.String()))

	select {
	case snap := <-ch:
		assert.Equal(t, "Silver", snap.CurrentTier)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published after metrics change")
	}

	updated, err := svc.GetByID(ctx, merchantID, customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, silver.Tier.ID, updated.CurrentTierID)
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	svc, _, _, node, _ := setupCustomerService(t)
	ctx := context.Background()
	merchantID := node.Generate().String()

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		MerchantID: merchantID,
		Name:       "Ada",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)

	ch, cancel, err := svc.Watch(ctx, merchantID, customer.ID.String())
	require.NoError(t, err)
	<-ch
	cancel()

	require.NoError(t, svc.NotifyMetricsChanged(ctx, merchantID, customer.ID.String()))
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	default:
	}
}
