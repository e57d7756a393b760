package services

import (
	"context"
	"errors"
	"time"

	"github.com/stampcard/stampcard-api/internal/apperrors"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/logger"
	"github.com/stampcard/stampcard-api/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultThreshold is the stamp count at which the wallet resets and a
	// reward is granted.
	DefaultThreshold = 10

	// DefaultCooldown is the minimum time between two accepted stamps for
	// the same customer. Protects against double scans from a page refresh.
	DefaultCooldown = 120 * time.Second

	// maxStampAttempts bounds the retry loop around guarded wallet updates.
	// A lost race re-reads the wallet, and the fresh cooldown check then
	// reports the rejection, so a second pass is normally the last.
	maxStampAttempts = 3
)

// RewardNotifier is the out-of-process collaborator told about redemptions.
// Consumed as a black box; failures never affect the ledger.
type RewardNotifier interface {
	NotifyReward(ctx context.Context, customer db.Customer) error
}

// StampResult is the outcome of a stamp-add.
type StampResult struct {
	CustomerID       string
	Stamps           int32
	Redeemed         bool
	RewardMessage    *string
	Cooldown         bool
	SecondsRemaining int64
}

// StampService owns the wallet ledger transitions: accrual, the reward
// message one stamp short of the threshold, and the redemption reset. The
// counter always stays within [0, threshold); the scan that would reach the
// threshold resets it to zero and records the redemption.
type StampService struct {
	store         db.Store
	identity      *IdentityService
	validator     TokenValidator
	notifier      RewardNotifier
	threshold     int32
	cooldown      time.Duration
	rewardMessage string
	now           func() time.Time
	logger        *zap.Logger
}

// StampServiceConfig carries the dependencies and tunables for a
// StampService. Store, Identity, and Validator are required.
type StampServiceConfig struct {
	Store         db.Store
	Identity      *IdentityService
	Validator     TokenValidator
	Notifier      RewardNotifier // optional
	Threshold     int32          // defaults to DefaultThreshold
	Cooldown      time.Duration  // defaults to DefaultCooldown
	RewardMessage string
	Now           func() time.Time // defaults to time.Now, override in tests
}

// NewStampService creates a new stamp service
func NewStampService(cfg StampServiceConfig) *StampService {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RewardMessage == "" {
		cfg.RewardMessage = "Congratulations! Your next visit is on us."
	}
	return &StampService{
		store:         cfg.Store,
		identity:      cfg.Identity,
		validator:     cfg.Validator,
		notifier:      cfg.Notifier,
		threshold:     cfg.Threshold,
		cooldown:      cfg.Cooldown,
		rewardMessage: cfg.RewardMessage,
		now:           cfg.Now,
		logger:        logger.Log,
	}
}

// AddStamp authorizes the token, resolves the customer, and applies one
// ledger transition. Authorization runs before resolution, so a bad token
// on a never-seen identifier creates no rows. The read-check-write sequence
// is protected by a conditional update on last_stamped_at: a concurrent
// stamp that commits first invalidates ours, and the retry observes the
// fresh timestamp and reports the cooldown instead.
func (s *StampService) AddStamp(ctx context.Context, identifier, token string) (*StampResult, error) {
	if err := s.validator.Authorize(token); err != nil {
		metrics.UnauthorizedTotal.Inc()
		return nil, err
	}

	customer, wallet, err := s.identity.ResolveOrCreate(ctx, identifier, "")
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxStampAttempts; attempt++ {
		if allowed, remaining := s.checkCooldown(wallet); !allowed {
			metrics.CooldownRejectionsTotal.Inc()
			return &StampResult{
				CustomerID:       customer.ID,
				Stamps:           wallet.Stamps,
				Cooldown:         true,
				SecondsRemaining: remaining,
			}, nil
		}

		params, result := s.transition(customer.ID, wallet)
		updated, err := s.store.UpdateWallet(ctx, params)
		if errors.Is(err, db.ErrConflict) {
			wallet, err = s.store.GetWallet(ctx, customer.ID)
			if err != nil {
				return nil, apperrors.Storagef(err, "failed to re-read wallet after conflict")
			}
			continue
		}
		if err != nil {
			s.logger.Error("Failed to update wallet",
				zap.String("customer_id", customer.ID),
				zap.Error(err))
			return nil, apperrors.Storagef(err, "failed to update wallet")
		}

		result.Stamps = updated.Stamps
		s.recordOutcome(customer, result)
		return result, nil
	}

	return nil, apperrors.Storagef(db.ErrConflict, "wallet update kept losing the race for customer %s", customer.ID)
}

// transition computes the next ledger state from the wallet read. An
// accrual that lands one short of the threshold carries the reward message;
// the scan that would reach the threshold resets the counter to zero and
// records the redemption. Every branch stamps last_stamped_at.
func (s *StampService) transition(customerID string, wallet db.Wallet) (db.UpdateWalletParams, *StampResult) {
	now := s.now().UTC()
	params := db.UpdateWalletParams{
		CustomerID:        customerID,
		LastStampedAt:     &now,
		LastRedeemedAt:    wallet.LastRedeemedAt,
		PrevLastStampedAt: wallet.LastStampedAt,
	}
	result := &StampResult{CustomerID: customerID}

	next := wallet.Stamps + 1
	if next >= s.threshold {
		params.Stamps = 0
		params.LastRedeemedAt = &now
		result.Redeemed = true
	} else {
		params.Stamps = next
		if next == s.threshold-1 {
			msg := s.rewardMessage
			result.RewardMessage = &msg
		}
	}
	return params, result
}

// checkCooldown is advisory: a stale answer is caught by the guarded write.
func (s *StampService) checkCooldown(wallet db.Wallet) (bool, int64) {
	if s.cooldown <= 0 || wallet.LastStampedAt == nil {
		return true, 0
	}
	elapsed := s.now().Sub(*wallet.LastStampedAt)
	if elapsed >= s.cooldown {
		return true, 0
	}
	remaining := s.cooldown - elapsed
	return false, int64((remaining + time.Second - 1) / time.Second)
}

func (s *StampService) recordOutcome(customer db.Customer, result *StampResult) {
	if result.Redeemed {
		metrics.RedemptionsTotal.Inc()
		s.logger.Info("Wallet redeemed",
			zap.String("customer_id", customer.ID))
		if s.notifier != nil {
			go s.notifyReward(customer)
		}
		return
	}
	metrics.StampsTotal.Inc()
	s.logger.Info("Stamp added",
		zap.String("customer_id", customer.ID),
		zap.Int32("stamps", result.Stamps))
}

func (s *StampService) notifyReward(customer db.Customer) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.notifier.NotifyReward(ctx, customer); err != nil {
		s.logger.Warn("Reward notification failed",
			zap.String("customer_id", customer.ID),
			zap.Error(err))
	}
}
