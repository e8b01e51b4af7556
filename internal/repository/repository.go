package repository

import (
	"context"
	"time"

	"racebook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ============================================================================
// Races
// ============================================================================

// CreateRace creates a race together with its horses
func (r *Repository) CreateRace(ctx context.Context, race *models.Race) error {
	return r.db.WithContext(ctx).Create(race).Error
}

// GetRaceByID retrieves a race with its horses
func (r *Repository) GetRaceByID(ctx context.Context, raceID uuid.UUID) (*models.Race, error) {
	var race models.Race
	err := r.db.WithContext(ctx).Preload("Horses").Where("id = ?", raceID).First(&race).Error
	if err != nil {
		return nil, err
	}
	return &race, nil
}

// ListRaces retrieves races, newest first
func (r *Repository) ListRaces(ctx context.Context, limit, offset int) ([]*models.Race, error) {
	var races []*models.Race
	err := r.db.WithContext(ctx).
		Preload("Horses").
		Order("scheduled_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&races).Error
	if err != nil {
		return nil, err
	}
	return races, nil
}

// TransitionRaceStatus moves a race from an expected status to the
// next one. Returns false when the race was not in the expected
// status, which keeps status transitions monotonic under concurrent
// admin actions.
func (r *Repository) TransitionRaceStatus(ctx context.Context, raceID uuid.UUID, from, to models.RaceStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Race{}).
		Where("id = ? AND status = ?", raceID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// CompleteRace marks a race completed with its declared winner, only
// if it has not been completed before.
func (r *Repository) CompleteRace(ctx context.Context, raceID uuid.UUID, winningHorse int) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Race{}).
		Where("id = ? AND status = ?", raceID, models.RaceStatusClosed).
		Updates(map[string]interface{}{
			"status":        models.RaceStatusCompleted,
			"winning_horse": winningHorse,
			"completed_at":  now,
			"updated_at":    now,
		})
	return res.RowsAffected > 0, res.Error
}

// ============================================================================
// Deposit addresses
// ============================================================================

// CreateDepositAddress creates a new deposit address
func (r *Repository) CreateDepositAddress(ctx context.Context, addr *models.DepositAddress) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

// GetDepositAddressByID retrieves a deposit address by ID
func (r *Repository) GetDepositAddressByID(ctx context.Context, id uuid.UUID) (*models.DepositAddress, error) {
	var addr models.DepositAddress
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// GetWaitingDeposits retrieves waiting deposit addresses that have not
// expired yet
func (r *Repository) GetWaitingDeposits(ctx context.Context, now time.Time) ([]*models.DepositAddress, error) {
	var addrs []*models.DepositAddress
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ?", models.DepositStatusWaiting, now).
		Order("created_at ASC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// GetExpiredWaitingDeposits retrieves waiting deposit addresses whose
// expiry has passed
func (r *Repository) GetExpiredWaitingDeposits(ctx context.Context, now time.Time) ([]*models.DepositAddress, error) {
	var addrs []*models.DepositAddress
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.DepositStatusWaiting, now).
		Order("created_at ASC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// GetConfirmedDeposits retrieves all confirmed deposit addresses for
// fund collection
func (r *Repository) GetConfirmedDeposits(ctx context.Context) ([]*models.DepositAddress, error) {
	var addrs []*models.DepositAddress
	err := r.db.WithContext(ctx).
		Where("status = ?", models.DepositStatusConfirmed).
		Order("created_at ASC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// FinalizeDeposit moves a waiting deposit address into a terminal
// status. The WHERE clause guards the write-once invariant: once an
// address has left WAITING no later cycle can move it again. Returns
// false when the address was already finalized.
func (r *Repository) FinalizeDeposit(
	ctx context.Context,
	id uuid.UUID,
	status models.DepositStatus,
	amount *decimal.Decimal,
	signature *string,
) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if amount != nil {
		updates["observed_amount"] = *amount
	}
	if signature != nil {
		updates["transfer_signature"] = *signature
	}

	res := r.db.WithContext(ctx).Model(&models.DepositAddress{}).
		Where("id = ? AND status = ?", id, models.DepositStatusWaiting).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// FinalizeDepositWithBet confirms a waiting deposit and creates its
// bet in one transaction, so a CONFIRMED address can never exist
// without the bet it promises. Returns false when the address was
// already finalized; any write failure rolls both rows back.
func (r *Repository) FinalizeDepositWithBet(
	ctx context.Context,
	id uuid.UUID,
	amount decimal.Decimal,
	signature string,
	bet *models.Bet,
) (bool, error) {
	finalized := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DepositAddress{}).
			Where("id = ? AND status = ?", id, models.DepositStatusWaiting).
			Updates(map[string]interface{}{
				"status":             models.DepositStatusConfirmed,
				"observed_amount":    amount,
				"transfer_signature": signature,
				"updated_at":         time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(bet).Error; err != nil {
			return err
		}
		finalized = true
		return nil
	})
	return finalized, err
}

// FinalizeDepositWithRefund moves a waiting deposit into a rejected
// terminal status and queues its refund in one transaction, so a
// rejection can never strand the sender's money without a refund row.
func (r *Repository) FinalizeDepositWithRefund(
	ctx context.Context,
	id uuid.UUID,
	status models.DepositStatus,
	amount decimal.Decimal,
	signature string,
	refund *models.Payout,
) (bool, error) {
	finalized := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DepositAddress{}).
			Where("id = ? AND status = ?", id, models.DepositStatusWaiting).
			Updates(map[string]interface{}{
				"status":             status,
				"observed_amount":    amount,
				"transfer_signature": signature,
				"updated_at":         time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(refund).Error; err != nil {
			return err
		}
		finalized = true
		return nil
	})
	return finalized, err
}

// GetRecentConsumedSignatures returns the most recently consumed
// inbound transfer signatures, used to warm the dedup set on startup.
func (r *Repository) GetRecentConsumedSignatures(ctx context.Context, limit int) ([]string, error) {
	var signatures []string
	err := r.db.WithContext(ctx).Model(&models.DepositAddress{}).
		Where("transfer_signature IS NOT NULL").
		Order("updated_at DESC").
		Limit(limit).
		Pluck("transfer_signature", &signatures).Error
	if err != nil {
		return nil, err
	}
	return signatures, nil
}

// ============================================================================
// Bets
// ============================================================================

// CreateBet creates a new bet
func (r *Repository) CreateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

// UpdateBet updates a bet
func (r *Repository) UpdateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Save(bet).Error
}

// GetBetByDepositAddress retrieves the bet created for a deposit
// address, or nil when none exists
func (r *Repository) GetBetByDepositAddress(ctx context.Context, depositAddressID uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("deposit_address_id = ?", depositAddressID).First(&bet).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// GetBetByID retrieves a bet by ID
func (r *Repository) GetBetByID(ctx context.Context, betID uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("id = ?", betID).First(&bet).Error
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// GetBetsByRace retrieves all bets for a race
func (r *Repository) GetBetsByRace(ctx context.Context, raceID uuid.UUID) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("created_at ASC").
		Find(&bets).Error
	if err != nil {
		return nil, err
	}
	return bets, nil
}

// HorsePool is the summed stake on one horse
type HorsePool struct {
	HorseNumber int             `json:"horse_number"`
	Total       decimal.Decimal `json:"total"`
}

// GetRacePools returns the per-horse bet totals for a race
func (r *Repository) GetRacePools(ctx context.Context, raceID uuid.UUID) ([]HorsePool, error) {
	var pools []HorsePool
	err := r.db.WithContext(ctx).Model(&models.Bet{}).
		Select("horse_number, SUM(amount) AS total").
		Where("race_id = ?", raceID).
		Group("horse_number").
		Scan(&pools).Error
	if err != nil {
		return nil, err
	}
	return pools, nil
}

// ============================================================================
// Payouts
// ============================================================================

// CreatePayout creates a payout, refund or collection record
func (r *Repository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

// UpdatePayout updates a payout record
func (r *Repository) UpdatePayout(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Save(payout).Error
}

// GetPendingPayouts retrieves all pending payouts of one kind
func (r *Repository) GetPendingPayouts(ctx context.Context, kind models.PayoutKind) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ?", kind, models.PayoutStatusPending).
		Order("created_at ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// GetCollectionForDeposit retrieves the collection sweep recorded for
// a deposit address, or nil when it has not been swept. One-to-one,
// which is what prevents a double sweep.
func (r *Repository) GetCollectionForDeposit(ctx context.Context, depositAddressID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("deposit_address_id = ? AND kind = ?", depositAddressID, models.PayoutKindCollection).
		First(&payout).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// ListPayouts retrieves payout records, newest first
func (r *Repository) ListPayouts(ctx context.Context, limit, offset int) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// ============================================================================
// Settings
// ============================================================================

// UpsertSetting writes a key-value config row idempotently
func (r *Repository) UpsertSetting(ctx context.Context, key, value string) error {
	setting := models.AppSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// GetSetting retrieves a config value, or "" when unset
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.AppSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}
