package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBetCreated     EventType = "BET_CREATED"
	EventRefundQueued   EventType = "REFUND_QUEUED"
	EventDepositExpired EventType = "DEPOSIT_EXPIRED"
)

// Event is published by the reconciler on its outbound channel. The
// notification layer consumes these; the engine itself carries no
// transport concerns.
type Event struct {
	Type             EventType
	RaceID           uuid.UUID
	DepositAddressID uuid.UUID
	BetID            *uuid.UUID
	Amount           decimal.Decimal
}
