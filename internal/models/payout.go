package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayoutKind string

const (
	PayoutKindPayout     PayoutKind = "PAYOUT"
	PayoutKindRefund     PayoutKind = "REFUND"
	PayoutKindCollection PayoutKind = "COLLECTION"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusCompleted  PayoutStatus = "COMPLETED"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// Payout is an outbound money movement: winnings paid from the
// treasury, a refund returned from the originating deposit address, or
// a collection sweep into the treasury. Failed rows are never retried
// automatically; an operator re-triggers the batch.
type Payout struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Kind             PayoutKind      `gorm:"size:50;not null;index" json:"kind"`
	BetID            *uuid.UUID      `gorm:"type:uuid;index" json:"bet_id"`
	DepositAddressID *uuid.UUID      `gorm:"type:uuid;index" json:"deposit_address_id"`
	Recipient        string          `gorm:"size:64;not null" json:"recipient"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,9);not null" json:"amount"`
	Status           PayoutStatus    `gorm:"size:50;not null;default:PENDING;index" json:"status"`
	TxSignature      *string         `gorm:"size:128" json:"tx_signature"`
	ErrorDetail      *string         `gorm:"type:text" json:"error_detail"`
	CreatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
}

func (Payout) TableName() string {
	return "payouts"
}
