package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositStatusWaiting            DepositStatus = "WAITING"
	DepositStatusConfirmed          DepositStatus = "CONFIRMED"
	DepositStatusRejectedTooSmall   DepositStatus = "REJECTED_TOO_SMALL"
	DepositStatusRejectedOverMax    DepositStatus = "REJECTED_OVER_MAX"
	DepositStatusRejectedRaceClosed DepositStatus = "REJECTED_RACE_CLOSED"
	DepositStatusExpired            DepositStatus = "EXPIRED"
)

// Terminal reports whether the status can never change again. Every
// status except WAITING is write-once terminal.
func (s DepositStatus) Terminal() bool {
	return s != DepositStatusWaiting
}

// DepositAddress is a single-use Solana address minted for one wager.
// The private key is custodied encrypted until the funds are refunded
// or collected; the address is never reused across wagers.
type DepositAddress struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Address           string           `gorm:"size:64;not null;uniqueIndex" json:"address"`
	EncryptedKey      string           `gorm:"type:text;not null" json:"-"`
	RaceID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"race_id"`
	HorseNumber       int              `gorm:"not null" json:"horse_number"`
	OwnerWallet       *string          `gorm:"size:64" json:"owner_wallet"`
	Status            DepositStatus    `gorm:"size:50;not null;default:WAITING;index" json:"status"`
	ObservedAmount    *decimal.Decimal `gorm:"type:decimal(20,9)" json:"observed_amount"`
	TransferSignature *string          `gorm:"size:128" json:"transfer_signature"`
	ExpiresAt         time.Time        `gorm:"not null;index" json:"expires_at"`
	CreatedAt         time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DepositAddress) TableName() string {
	return "deposit_addresses"
}

// PlaceWagerRequest represents a request to open a wager and receive a
// deposit address for it
type PlaceWagerRequest struct {
	RaceID      string  `json:"race_id" binding:"required"`
	HorseNumber int     `json:"horse_number" binding:"required,gt=0"`
	OwnerWallet *string `json:"owner_wallet"`
}

// DepositStatusResponse is returned to a bettor polling their wager
type DepositStatusResponse struct {
	ID             string     `json:"id"`
	Address        string     `json:"address"`
	Status         string     `json:"status"`
	HorseNumber    int        `json:"horse_number"`
	ObservedAmount *string    `json:"observed_amount"`
	ExpiresAt      time.Time  `json:"expires_at"`
	BetID          *string    `json:"bet_id"`
	Odds           *string    `json:"odds"`
}
