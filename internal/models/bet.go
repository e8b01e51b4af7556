package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BetPayoutStatus string

const (
	BetPayoutStatusNone    BetPayoutStatus = "NONE"
	BetPayoutStatusQueued  BetPayoutStatus = "QUEUED"
	BetPayoutStatusPaid    BetPayoutStatus = "PAID"
	BetPayoutStatusForfeit BetPayoutStatus = "FORFEIT"
)

// Bet is created exactly once per confirmed deposit address. The
// transfer signature is globally unique so one external transfer can
// never become two bets.
type Bet struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RaceID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"race_id"`
	HorseNumber      int              `gorm:"not null;index" json:"horse_number"`
	DepositAddressID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"deposit_address_id"`
	Bettor           string           `gorm:"size:64;not null;index" json:"bettor"`
	Amount           decimal.Decimal  `gorm:"type:decimal(20,9);not null" json:"amount"`
	Signature        string           `gorm:"size:128;not null;uniqueIndex" json:"signature"`
	OddsAtPlacement  decimal.Decimal  `gorm:"type:decimal(20,9);not null" json:"odds_at_placement"`
	Winnings         *decimal.Decimal `gorm:"type:decimal(20,9)" json:"winnings"`
	PayoutStatus     BetPayoutStatus  `gorm:"size:50;not null;default:NONE" json:"payout_status"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Bet) TableName() string {
	return "bets"
}
