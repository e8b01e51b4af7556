package services

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"racebook/internal/blockchain"
	"racebook/internal/models"
	"racebook/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciler drives deposit addresses through their state machine by
// polling the ledger. It is the only writer of deposit, bet and
// refund state besides the admin-triggered settlement path.
type Reconciler struct {
	repo           *repository.Repository
	ledger         LedgerGateway
	signatures     *SignatureSet
	limits         WagerLimits
	historyLimit   int
	addressTimeout time.Duration
	running        atomic.Bool
	events         chan Event
}

func NewReconciler(repo *repository.Repository, ledger LedgerGateway, signatures *SignatureSet, limits WagerLimits) *Reconciler {
	return &Reconciler{
		repo:           repo,
		ledger:         ledger,
		signatures:     signatures,
		limits:         limits,
		historyLimit:   5,
		addressTimeout: 20 * time.Second,
		events:         make(chan Event, 256),
	}
}

// Events is the outbound channel the reconciler publishes bet/refund/
// expiry notifications on.
func (r *Reconciler) Events() <-chan Event {
	return r.events
}

// WarmSignatures reloads recently consumed transfer signatures from
// persisted deposit records, so a process restart cannot convert the
// same external transfer twice.
func (r *Reconciler) WarmSignatures(ctx context.Context) error {
	signatures, err := r.repo.GetRecentConsumedSignatures(ctx, r.signatures.capacity)
	if err != nil {
		return fmt.Errorf("failed to load consumed signatures: %w", err)
	}
	for _, sig := range signatures {
		r.signatures.Add(sig)
	}
	log.Printf("[Reconciler] Warmed signature set with %d consumed signatures", len(signatures))
	return nil
}

// RunCycle executes one reconciliation pass: scan live waiting
// addresses, then sweep expired ones. Overlapping invocations are
// skipped rather than queued; a ledger failure on one address never
// aborts the cycle for the others.
func (r *Reconciler) RunCycle(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		log.Println("[Reconciler] Previous cycle still running, skipping")
		return nil
	}
	defer r.running.Store(false)

	addrs, err := r.repo.GetWaitingDeposits(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to fetch waiting deposits: %w", err)
	}

	for _, addr := range addrs {
		if err := r.checkAddress(ctx, addr); err != nil {
			log.Printf("[Reconciler] Error checking address %s: %v", addr.Address, err)
		}
	}

	r.sweepExpired(ctx)
	return nil
}

// checkAddress looks for an inbound transfer to one waiting address
// and consumes the first valid one. Later transfers to the same
// address are left alone; a single-use address buys exactly one bet
// or refund.
func (r *Reconciler) checkAddress(ctx context.Context, addr *models.DepositAddress) error {
	ctx, cancel := context.WithTimeout(ctx, r.addressTimeout)
	defer cancel()

	balance, err := r.ledger.GetBalance(ctx, addr.Address)
	if err != nil {
		return fmt.Errorf("balance query failed: %w", err)
	}
	if balance == 0 {
		return nil
	}

	signatures, err := r.ledger.GetRecentSignatures(ctx, addr.Address, r.historyLimit)
	if err != nil {
		return fmt.Errorf("signature query failed: %w", err)
	}

	for _, sig := range signatures {
		if r.signatures.Contains(sig) {
			continue
		}

		transfer, err := r.ledger.GetTransfer(ctx, sig, addr.Address)
		if err != nil {
			log.Printf("[Reconciler] Error fetching transaction %s: %v", sig, err)
			continue
		}
		if transfer == nil {
			continue
		}

		// First valid transfer wins.
		return r.consumeTransfer(ctx, addr, transfer)
	}

	return nil
}

// consumeTransfer hands a classified transfer to the deposit state
// machine and persists the result exactly once.
func (r *Reconciler) consumeTransfer(ctx context.Context, addr *models.DepositAddress, transfer *blockchain.Transfer) error {
	amount := blockchain.LamportsToSOL(transfer.Lamports)

	race, err := r.repo.GetRaceByID(ctx, addr.RaceID)
	if err != nil {
		return fmt.Errorf("failed to load race %s: %w", addr.RaceID, err)
	}

	outcome := EvaluateDeposit(race, amount, r.limits)
	status := StatusForOutcome(outcome)

	if outcome == OutcomeConfirm {
		return r.confirmDeposit(ctx, addr, race, transfer, amount)
	}

	refund := &models.Payout{
		ID:               uuid.New(),
		Kind:             models.PayoutKindRefund,
		DepositAddressID: &addr.ID,
		Recipient:        transfer.Sender,
		Amount:           amount,
		Status:           models.PayoutStatusPending,
	}

	// Rejection and refund commit together; a rejected address can
	// never exist without its refund row.
	finalized, err := r.repo.FinalizeDepositWithRefund(ctx, addr.ID, status, amount, transfer.Signature, refund)
	if err != nil {
		return fmt.Errorf("failed to finalize deposit: %w", err)
	}
	if !finalized {
		// Already terminal; a concurrent writer got there first.
		return nil
	}

	r.signatures.Add(transfer.Signature)
	r.publish(Event{
		Type:             EventRefundQueued,
		RaceID:           addr.RaceID,
		DepositAddressID: addr.ID,
		Amount:           amount,
	})

	log.Printf("[Reconciler] Deposit %s rejected (%s), refund of %s SOL queued to %s",
		addr.Address, status, amount, transfer.Sender)
	return nil
}

func (r *Reconciler) confirmDeposit(ctx context.Context, addr *models.DepositAddress, race *models.Race, transfer *blockchain.Transfer, amount decimal.Decimal) error {
	// Odds are locked in before this bet joins the pool, including
	// the bettor's own contribution on both sides of the ratio.
	pools, err := r.repo.GetRacePools(ctx, race.ID)
	if err != nil {
		return fmt.Errorf("failed to load race pools: %w", err)
	}

	totalPool := decimal.Zero
	horsePool := decimal.Zero
	for _, p := range pools {
		totalPool = totalPool.Add(p.Total)
		if p.HorseNumber == addr.HorseNumber {
			horsePool = p.Total
		}
	}
	odds := OddsAtPlacement(totalPool, horsePool, amount)

	bet := &models.Bet{
		ID:               uuid.New(),
		RaceID:           race.ID,
		HorseNumber:      addr.HorseNumber,
		DepositAddressID: addr.ID,
		Bettor:           transfer.Sender,
		Amount:           amount,
		Signature:        transfer.Signature,
		OddsAtPlacement:  odds,
		PayoutStatus:     models.BetPayoutStatusNone,
	}

	// Confirmation and bet creation commit together. The unique
	// signature index on bets blocks a second bet for the same
	// transfer and rolls the confirmation back with it.
	finalized, err := r.repo.FinalizeDepositWithBet(ctx, addr.ID, amount, transfer.Signature, bet)
	if err != nil {
		return fmt.Errorf("failed to finalize deposit %s: %w", addr.ID, err)
	}
	if !finalized {
		return nil
	}

	r.signatures.Add(transfer.Signature)
	r.publish(Event{
		Type:             EventBetCreated,
		RaceID:           race.ID,
		DepositAddressID: addr.ID,
		BetID:            &bet.ID,
		Amount:           amount,
	})

	log.Printf("[Reconciler] Bet created: %s SOL on horse %d in race %s (odds %s)",
		amount, addr.HorseNumber, race.ID, odds.StringFixed(4))
	return nil
}

// sweepExpired finalizes waiting addresses past their expiry. The
// balance is re-checked one last time so a transfer landing at or
// after expiry is still honored; only truly empty addresses expire.
func (r *Reconciler) sweepExpired(ctx context.Context) {
	addrs, err := r.repo.GetExpiredWaitingDeposits(ctx, time.Now())
	if err != nil {
		log.Printf("[Reconciler] Error fetching expired deposits: %v", err)
		return
	}

	for _, addr := range addrs {
		balance, err := r.ledger.GetBalance(ctx, addr.Address)
		if err != nil {
			log.Printf("[Reconciler] Error checking expired address %s: %v", addr.Address, err)
			continue
		}

		if balance > 0 {
			// Late arrival: run the normal consumption path.
			if err := r.checkAddress(ctx, addr); err != nil {
				log.Printf("[Reconciler] Error consuming late transfer on %s: %v", addr.Address, err)
			}
			continue
		}

		finalized, err := r.repo.FinalizeDeposit(ctx, addr.ID, models.DepositStatusExpired, nil, nil)
		if err != nil {
			log.Printf("[Reconciler] Error expiring address %s: %v", addr.Address, err)
			continue
		}
		if finalized {
			r.publish(Event{
				Type:             EventDepositExpired,
				RaceID:           addr.RaceID,
				DepositAddressID: addr.ID,
			})
		}
	}
}

func (r *Reconciler) publish(event Event) {
	select {
	case r.events <- event:
	default:
		log.Printf("[Reconciler] Event channel full, dropping %s event", event.Type)
	}
}
