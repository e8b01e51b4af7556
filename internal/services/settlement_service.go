package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"racebook/internal/models"
	"racebook/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrRaceNotClosed    = errors.New("race must be closed before settlement")
	ErrAlreadySettled   = errors.New("race has already been settled")
	ErrWinnerOutOfRange = errors.New("winning horse number is out of range")
)

// WinningShare is one winning bet's computed settlement.
type WinningShare struct {
	Bet         *models.Bet
	Winnings    decimal.Decimal
	TotalPayout decimal.Decimal
}

// SettlementResult is the full pari-mutuel computation for one race.
type SettlementResult struct {
	TotalPool     decimal.Decimal
	WinningPool   decimal.Decimal
	LosingPool    decimal.Decimal
	Distributable decimal.Decimal
	Winners       []WinningShare
}

// ComputeSettlement computes pari-mutuel payouts: the losing pool
// minus the house edge is redistributed among winning bets in
// proportion to their stakes; winners also get their stake back,
// losers forfeit theirs. A race with nothing on the winner produces
// zero payouts and the whole pool is retained.
func ComputeSettlement(bets []*models.Bet, winningHorse int, houseEdgePercent float64) *SettlementResult {
	result := &SettlementResult{
		TotalPool:     decimal.Zero,
		WinningPool:   decimal.Zero,
		LosingPool:    decimal.Zero,
		Distributable: decimal.Zero,
	}

	var winningBets []*models.Bet
	for _, bet := range bets {
		result.TotalPool = result.TotalPool.Add(bet.Amount)
		if bet.HorseNumber == winningHorse {
			result.WinningPool = result.WinningPool.Add(bet.Amount)
			winningBets = append(winningBets, bet)
		}
	}
	result.LosingPool = result.TotalPool.Sub(result.WinningPool)

	if result.WinningPool.IsZero() {
		// No money on the winner: nothing to distribute, and no
		// division below.
		return result
	}

	edge := decimal.NewFromFloat(houseEdgePercent).Div(decimal.NewFromInt(100))
	result.Distributable = result.LosingPool.Mul(decimal.NewFromInt(1).Sub(edge))

	for _, bet := range winningBets {
		share := bet.Amount.Div(result.WinningPool)
		winnings := result.Distributable.Mul(share)
		result.Winners = append(result.Winners, WinningShare{
			Bet:         bet,
			Winnings:    winnings,
			TotalPayout: bet.Amount.Add(winnings),
		})
	}

	return result
}

// SettlementService performs the one-time, irreversible settlement of
// a closed race.
type SettlementService struct {
	repo             *repository.Repository
	houseEdgePercent float64
}

func NewSettlementService(repo *repository.Repository, houseEdgePercent float64) *SettlementService {
	return &SettlementService{
		repo:             repo,
		houseEdgePercent: houseEdgePercent,
	}
}

// Settle declares the winner of a closed race, computes every bet's
// payout and queues Payout records for the dispatcher. Settling an
// already-completed race, or settling with an out-of-range winner, is
// rejected before any state mutation.
func (ss *SettlementService) Settle(ctx context.Context, raceID uuid.UUID, winningHorse int) (*SettlementResult, error) {
	race, err := ss.repo.GetRaceByID(ctx, raceID)
	if err != nil {
		return nil, ErrRaceNotFound
	}

	if race.Status == models.RaceStatusCompleted {
		return nil, ErrAlreadySettled
	}
	if race.Status != models.RaceStatusClosed {
		return nil, ErrRaceNotClosed
	}
	if winningHorse < 1 || winningHorse > race.HorseCount {
		return nil, ErrWinnerOutOfRange
	}

	bets, err := ss.repo.GetBetsByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bets: %w", err)
	}

	result := ComputeSettlement(bets, winningHorse, ss.houseEdgePercent)

	// The conditional CLOSED -> COMPLETED update is the settlement
	// guard: exactly one caller wins it.
	completed, err := ss.repo.CompleteRace(ctx, raceID, winningHorse)
	if err != nil {
		return nil, fmt.Errorf("failed to complete race: %w", err)
	}
	if !completed {
		return nil, ErrAlreadySettled
	}

	for _, winner := range result.Winners {
		winnings := winner.Winnings
		winner.Bet.Winnings = &winnings
		winner.Bet.PayoutStatus = models.BetPayoutStatusQueued
		if err := ss.repo.UpdateBet(ctx, winner.Bet); err != nil {
			return nil, fmt.Errorf("failed to update winning bet %s: %w", winner.Bet.ID, err)
		}

		payout := &models.Payout{
			ID:        uuid.New(),
			Kind:      models.PayoutKindPayout,
			BetID:     &winner.Bet.ID,
			Recipient: winner.Bet.Bettor,
			Amount:    winner.TotalPayout,
			Status:    models.PayoutStatusPending,
		}
		if err := ss.repo.CreatePayout(ctx, payout); err != nil {
			return nil, fmt.Errorf("failed to queue payout for bet %s: %w", winner.Bet.ID, err)
		}
	}

	// Losing bets forfeit their stake.
	zero := decimal.Zero
	for _, bet := range bets {
		if bet.HorseNumber == winningHorse {
			continue
		}
		bet.Winnings = &zero
		bet.PayoutStatus = models.BetPayoutStatusForfeit
		if err := ss.repo.UpdateBet(ctx, bet); err != nil {
			return nil, fmt.Errorf("failed to update losing bet %s: %w", bet.ID, err)
		}
	}

	log.Printf("Race %s settled: winner horse %d, pool %s SOL, distributable %s SOL across %d winning bets",
		raceID, winningHorse, result.TotalPool, result.Distributable, len(result.Winners))

	return result, nil
}
