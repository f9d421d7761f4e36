package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stampworks/loyalty/internal/clock"
	customerdomain "github.com/stampworks/loyalty/internal/customer/domain"
	"github.com/stampworks/loyalty/internal/program/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	Enqueuer     domain.CleanupEnqueuer
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	enqueuer     domain.CleanupEnqueuer
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("program.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		enqueuer:     p.Enqueuer,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProgramRequest) (domain.Program, error) {
	mid, err := parseID(req.MerchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Program{}, err
	}
	if !req.Kind.Valid() {
		return domain.Program{}, domain.ErrUnknownKind
	}
	if !validPIN(req.PIN) {
		return domain.Program{}, domain.ErrInvalidPIN
	}

	spec, err := encodeSpec(req)
	if err != nil {
		return domain.Program{}, err
	}

	existing, err := s.repo.FindActive(ctx, s.db, mid, req.Kind)
	if err != nil {
		return domain.Program{}, err
	}
	if existing != nil {
		return domain.Program{}, domain.ErrProgramExists
	}

	now := s.clock.Now()
	program := domain.Program{
		ID:         s.genID.Generate(),
		MerchantID: mid,
		Kind:       req.Kind,
		Active:     true,
		PIN:        req.PIN,
		Spec:       spec,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &program); err != nil {
		return domain.Program{}, err
	}
	return program, nil
}

func (s *Service) GetActive(ctx context.Context, merchantID string, kind domain.Kind) (domain.Program, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Program{}, err
	}
	if !kind.Valid() {
		return domain.Program{}, domain.ErrUnknownKind
	}
	program, err := s.repo.FindActive(ctx, s.db, mid, kind)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	return *program, nil
}

func (s *Service) Ladder(ctx context.Context, merchantID string, kind domain.Kind) ([]domain.RewardLevel, error) {
	program, err := s.GetActive(ctx, merchantID, kind)
	if err != nil {
		return nil, err
	}
	return GenerateLadder(program)
}

// Remove commits the deactivation first: once this transaction lands the
// program is gone regardless of how the per-customer cleanup fares. The
// cascade job is enqueued in the same transaction so it cannot be lost.
func (s *Service) Remove(ctx context.Context, merchantID string, kind domain.Kind) error {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return domain.ErrUnknownKind
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		program, err := s.repo.FindActive(ctx, tx, mid, kind)
		if err != nil {
			return err
		}
		if program == nil {
			// Already removed; repeating the call is a no-op success.
			return nil
		}

		now := s.clock.Now()
		program.Active = false
		program.Spec = nil
		program.RemovedAt = &now
		program.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, program); err != nil {
			return err
		}
		return s.enqueuer.Enqueue(ctx, tx, mid, kind)
	})
}

func (s *Service) Stamp(ctx context.Context, merchantID, customerID, pin string, amount decimal.Decimal) (domain.StampResult, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.StampResult{}, err
	}
	cid, err := parseID(customerID, domain.ErrInvalidID)
	if err != nil {
		return domain.StampResult{}, err
	}

	program, err := s.repo.FindActive(ctx, s.db, mid, domain.KindCoffee)
	if err != nil {
		return domain.StampResult{}, err
	}
	if program == nil {
		return domain.StampResult{}, domain.ErrNotFound
	}
	if program.PIN != pin {
		return domain.StampResult{}, domain.ErrInvalidPIN
	}

	var spec domain.CoffeeSpec
	if err := json.Unmarshal(program.Spec, &spec); err != nil {
		return domain.StampResult{}, err
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, mid, cid)
	if err != nil {
		return domain.StampResult{}, err
	}
	if customer == nil {
		return domain.StampResult{}, customerdomain.ErrNotFound
	}

	now := s.clock.Now()
	outcome := ApplyStamp(spec, CoffeeState{
		Stamps:      customer.CoffeeStamps,
		LastStampAt: customer.CoffeeLastStampAt,
	}, amount, now)

	if !outcome.Counted {
		return domain.StampResult{Stamps: outcome.State.Stamps, Reason: outcome.Reason}, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.customerRepo.UpdateCoffeeState(ctx, tx, mid, cid, outcome.State.Stamps, outcome.State.LastStampAt); err != nil {
			return err
		}
		if err := s.insertEvent(ctx, tx, mid, cid, domain.KindCoffee, customerdomain.EventStamp, amount, now); err != nil {
			return err
		}
		if outcome.CycleComplete {
			return s.insertEvent(ctx, tx, mid, cid, domain.KindCoffee, customerdomain.EventCycleComplete, decimal.Zero, now)
		}
		return nil
	})
	if err != nil {
		return domain.StampResult{}, err
	}

	return domain.StampResult{
		Counted:       true,
		Stamps:        outcome.State.Stamps,
		CycleComplete: outcome.CycleComplete,
	}, nil
}

func (s *Service) RecordTransaction(ctx context.Context, merchantID, customerID string, amount decimal.Decimal) (domain.RecordTransactionResult, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.RecordTransactionResult{}, err
	}
	cid, err := parseID(customerID, domain.ErrInvalidID)
	if err != nil {
		return domain.RecordTransactionResult{}, err
	}

	program, err := s.repo.FindActive(ctx, s.db, mid, domain.KindTransaction)
	if err != nil {
		return domain.RecordTransactionResult{}, err
	}
	if program == nil {
		return domain.RecordTransactionResult{}, domain.ErrNotFound
	}

	ladder, err := GenerateLadder(*program)
	if err != nil {
		return domain.RecordTransactionResult{}, err
	}

	var result domain.RecordTransactionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.customerRepo.IncrementProgramTransactions(ctx, tx, mid, cid)
		if err != nil {
			return err
		}
		result.Count = count

		for i := range ladder {
			if ladder[i].TransactionsRequired == count {
				result.Unlocked = &ladder[i]
				return s.insertEvent(ctx, tx, mid, cid, domain.KindTransaction, customerdomain.EventLevelUnlocked, ladder[i].VoucherAmount, s.clock.Now())
			}
		}
		return nil
	})
	if err != nil {
		return domain.RecordTransactionResult{}, err
	}
	return result, nil
}

func (s *Service) insertEvent(ctx context.Context, tx *gorm.DB, mid, cid snowflake.ID, kind domain.Kind, eventType string, amount decimal.Decimal, now time.Time) error {
	return s.customerRepo.InsertEvent(ctx, tx, &customerdomain.ProgramEvent{
		ID:         s.genID.Generate(),
		MerchantID: mid,
		CustomerID: cid,
		Kind:       kind,
		Type:       eventType,
		Amount:     amount,
		OccurredAt: now,
	})
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

func encodeSpec(req domain.CreateProgramRequest) (datatypes.JSON, error) {
	switch req.Kind {
	case domain.KindCoffee:
		if req.Coffee == nil || req.Coffee.Frequency < 2 {
			return nil, domain.ErrInvalidFrequency
		}
		if req.Coffee.MinSpend.IsNegative() || req.Coffee.MinTimeBetweenMinutes < 0 {
			return nil, domain.ErrInvalidAmount
		}
		return marshalSpec(req.Coffee)

	case domain.KindVoucher:
		if req.Voucher == nil || !req.Voucher.SpendRequired.IsPositive() || !req.Voucher.VoucherAmount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		return marshalSpec(req.Voucher)

	case domain.KindTransaction:
		spec := req.Transaction
		if spec == nil || spec.TransactionThreshold <= 0 {
			return nil, domain.ErrInvalidThreshold
		}
		if spec.Iterations <= 0 {
			return nil, domain.ErrInvalidIterations
		}
		switch spec.RewardType {
		case domain.RewardTypeVoucher:
			if !spec.VoucherAmount.IsPositive() {
				return nil, domain.ErrInvalidAmount
			}
		case domain.RewardTypeFreeItem:
			if strings.TrimSpace(spec.FreeItemName) == "" {
				return nil, domain.ErrInvalidRewardType
			}
		default:
			return nil, domain.ErrInvalidRewardType
		}
		return marshalSpec(spec)

	default:
		return nil, domain.ErrUnknownKind
	}
}

func marshalSpec(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
