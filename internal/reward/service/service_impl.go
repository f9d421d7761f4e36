package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/clock"
	customerdomain "github.com/stampworks/loyalty/internal/customer/domain"
	"github.com/stampworks/loyalty/internal/eligibility"
	merchantdomain "github.com/stampworks/loyalty/internal/merchant/domain"
	"github.com/stampworks/loyalty/internal/reward/domain"
	"github.com/stampworks/loyalty/internal/rule"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Eligibility *eligibility.Evaluator
	CustomerSvc customerdomain.Service
	MerchantSvc merchantdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	eligibility *eligibility.Evaluator
	customerSvc customerdomain.Service
	merchantSvc merchantdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reward.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		eligibility: p.Eligibility,
		customerSvc: p.CustomerSvc,
		merchantSvc: p.MerchantSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRewardRequest) (domain.Reward, error) {
	mid, err := parseID(req.MerchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Reward{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Reward{}, domain.ErrNameRequired
	}

	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if !status.Valid() {
		return domain.Reward{}, domain.ErrInvalidStatus
	}

	conditions, err := rule.EncodeConditions(req.Conditions)
	if err != nil {
		return domain.Reward{}, err
	}
	limitations, err := rule.EncodeLimitations(req.Limitations)
	if err != nil {
		return domain.Reward{}, err
	}

	now := s.clock.Now()
	reward := domain.Reward{
		ID:          s.genID.Generate(),
		MerchantID:  mid,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		PointsCost:  req.PointsCost,
		Status:      status,
		Conditions:  conditions,
		Limitations: limitations,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &reward); err != nil {
		return domain.Reward{}, err
	}
	return reward, nil
}

func (s *Service) GetByID(ctx context.Context, merchantID, id string) (domain.Reward, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Reward{}, err
	}
	rid, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Reward{}, err
	}

	reward, err := s.repo.FindByID(ctx, s.db, mid, rid)
	if err != nil {
		return domain.Reward{}, err
	}
	if reward == nil {
		return domain.Reward{}, domain.ErrNotFound
	}
	return *reward, nil
}

func (s *Service) List(ctx context.Context, merchantID string) ([]domain.Reward, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, mid)
}

func (s *Service) UpdateStatus(ctx context.Context, merchantID, id string, status domain.Status) error {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return err
	}
	rid, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}

	reward, err := s.repo.FindByID(ctx, s.db, mid, rid)
	if err != nil {
		return err
	}
	if reward == nil {
		return domain.ErrNotFound
	}
	return s.repo.UpdateStatus(ctx, s.db, mid, rid, status)
}

func (s *Service) IsEligible(ctx context.Context, merchantID, rewardID, customerID string, amount decimal.Decimal) (eligibility.Verdict, error) {
	_, verdict, err := s.evaluate(ctx, merchantID, rewardID, customerID, amount)
	return verdict, err
}

func (s *Service) Redeem(ctx context.Context, merchantID, rewardID, customerID string, amount decimal.Decimal) (domain.Redemption, eligibility.Verdict, error) {
	reward, verdict, err := s.evaluate(ctx, merchantID, rewardID, customerID, amount)
	if err != nil {
		return domain.Redemption{}, eligibility.Verdict{}, err
	}
	if !verdict.Allowed {
		return domain.Redemption{}, verdict, domain.ErrNotEligible
	}

	cid, err := parseID(customerID, customerdomain.ErrInvalidID)
	if err != nil {
		return domain.Redemption{}, eligibility.Verdict{}, err
	}

	redemption := domain.Redemption{
		ID:         s.genID.Generate(),
		MerchantID: reward.MerchantID,
		RewardID:   reward.ID,
		CustomerID: cid,
		RedeemedAt: s.clock.Now(),
	}
	if err := s.repo.InsertRedemption(ctx, s.db, &redemption); err != nil {
		return domain.Redemption{}, eligibility.Verdict{}, err
	}

	// Redemption history feeds back into the customer's snapshot; a failed
	// notify only delays watchers until the next counter change.
	if err := s.customerSvc.NotifyMetricsChanged(ctx, merchantID, customerID); err != nil {
		s.log.Warn("notify after redemption failed",
			zap.String("merchant_id", merchantID),
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}
	return redemption, verdict, nil
}

// evaluate loads the reward and the customer's snapshot, resolves the
// merchant-local clock, and runs the combined check. Inactive rewards are
// denied without touching the rule documents.
func (s *Service) evaluate(ctx context.Context, merchantID, rewardID, customerID string, amount decimal.Decimal) (domain.Reward, eligibility.Verdict, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}
	rid, err := parseID(rewardID, domain.ErrInvalidID)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}
	cid, err := parseID(customerID, customerdomain.ErrInvalidID)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}

	reward, err := s.repo.FindByID(ctx, s.db, mid, rid)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}
	if reward == nil {
		return domain.Reward{}, eligibility.Verdict{}, domain.ErrNotFound
	}
	if reward.Status != domain.StatusActive {
		return *reward, eligibility.Verdict{Reason: "reward_inactive"}, nil
	}

	conditions, err := rule.DecodeConditions(reward.Conditions)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}
	limitations, err := rule.DecodeLimitations(reward.Limitations)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}

	snap, err := s.customerSvc.Snapshot(ctx, merchantID, customerID)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}

	perCustomer, err := s.repo.CountCustomerRedemptions(ctx, s.db, mid, rid, cid)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}
	total, err := s.repo.CountRedemptions(ctx, s.db, mid, rid)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}

	loc, err := s.merchantSvc.Location(ctx, merchantID)
	if err != nil {
		return domain.Reward{}, eligibility.Verdict{}, err
	}

	verdict := s.eligibility.Evaluate(eligibility.Input{
		Conditions:  conditions,
		Limitations: limitations,
		Snapshot:    snap,
		Now:         s.clock.Now().In(loc),
		History:     eligibility.History{PerCustomer: perCustomer, Total: total},
		Amount:      amount,
	})
	return *reward, verdict, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
