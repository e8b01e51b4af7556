package services

import (
	"racebook/internal/models"

	"github.com/shopspring/decimal"
)

// DepositOutcome is the state-machine verdict for a valid classified
// transfer arriving at a waiting deposit address.
type DepositOutcome int

const (
	OutcomeConfirm DepositOutcome = iota
	OutcomeRejectTooSmall
	OutcomeRejectOverMax
	OutcomeRejectRaceClosed
)

// WagerLimits are the configured bounds on a single wager.
type WagerLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// EvaluateDeposit applies the deposit state machine to a classified
// transfer. Rules are evaluated in strict precedence: amount bounds
// first, then race availability. Rejections always lead to a queued
// refund, never a dropped transfer.
func EvaluateDeposit(race *models.Race, amount decimal.Decimal, limits WagerLimits) DepositOutcome {
	if amount.LessThan(limits.Min) {
		return OutcomeRejectTooSmall
	}
	if amount.GreaterThan(limits.Max) {
		return OutcomeRejectOverMax
	}
	if race.Status != models.RaceStatusOpen {
		return OutcomeRejectRaceClosed
	}
	return OutcomeConfirm
}

// StatusForOutcome maps a state-machine verdict to the terminal
// deposit status it produces.
func StatusForOutcome(outcome DepositOutcome) models.DepositStatus {
	switch outcome {
	case OutcomeConfirm:
		return models.DepositStatusConfirmed
	case OutcomeRejectTooSmall:
		return models.DepositStatusRejectedTooSmall
	case OutcomeRejectOverMax:
		return models.DepositStatusRejectedOverMax
	case OutcomeRejectRaceClosed:
		return models.DepositStatusRejectedRaceClosed
	}
	return models.DepositStatusWaiting
}

// OddsAtPlacement computes the pari-mutuel odds a bettor locks in if
// no further money arrives: (total pool + stake) / (horse pool +
// stake), evaluated including the bettor's own contribution.
func OddsAtPlacement(totalPool, horsePool, amount decimal.Decimal) decimal.Decimal {
	return totalPool.Add(amount).Div(horsePool.Add(amount))
}
