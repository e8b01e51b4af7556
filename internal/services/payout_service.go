package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"racebook/internal/blockchain"
	"racebook/internal/models"
	"racebook/internal/repository"
	"racebook/internal/wallet"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDispatchInFlight     = errors.New("dispatch operation already in progress")
	ErrTreasuryUnderfunded  = errors.New("treasury balance cannot cover the pending payout batch")
)

// DispatchSummary reports the outcome of one dispatch batch.
type DispatchSummary struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// PayoutService executes the three outbound money flows: winnings
// from the treasury, refunds from the originating deposit addresses,
// and collection sweeps into the treasury. Each flow refuses
// concurrent re-entrancy, and failed items are never retried
// automatically.
type PayoutService struct {
	repo            *repository.Repository
	ledger          LedgerGateway
	keyStore        *wallet.KeyStore
	opsWallet       string
	opsSplitPercent float64

	payoutsInFlight atomic.Bool
	refundsInFlight atomic.Bool
	collectInFlight atomic.Bool
}

func NewPayoutService(
	repo *repository.Repository,
	ledger LedgerGateway,
	keyStore *wallet.KeyStore,
	opsWallet string,
	opsSplitPercent float64,
) *PayoutService {
	return &PayoutService{
		repo:            repo,
		ledger:          ledger,
		keyStore:        keyStore,
		opsWallet:       opsWallet,
		opsSplitPercent: opsSplitPercent,
	}
}

// ProcessPayouts sends every pending winnings payout from the
// treasury. The whole batch is refused up front when the treasury
// cannot cover it, rather than part-paying and discovering the
// shortfall mid-batch.
func (ps *PayoutService) ProcessPayouts(ctx context.Context) (*DispatchSummary, error) {
	if !ps.payoutsInFlight.CompareAndSwap(false, true) {
		return nil, ErrDispatchInFlight
	}
	defer ps.payoutsInFlight.Store(false)

	pending, err := ps.repo.GetPendingPayouts(ctx, models.PayoutKindPayout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending payouts: %w", err)
	}

	summary := &DispatchSummary{}
	if len(pending) == 0 {
		return summary, nil
	}

	batchTotal := decimal.Zero
	for _, p := range pending {
		batchTotal = batchTotal.Add(p.Amount)
	}

	treasuryBalance, err := ps.ledger.GetBalance(ctx, ps.ledger.TreasuryAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to check treasury balance: %w", err)
	}
	needed := blockchain.SOLToLamports(batchTotal) + uint64(len(pending))*blockchain.FeeReserveLamports
	if treasuryBalance < needed {
		log.Printf("[PayoutService] Treasury underfunded: have %d lamports, need %d for %d payouts",
			treasuryBalance, needed, len(pending))
		return nil, ErrTreasuryUnderfunded
	}

	for _, payout := range pending {
		summary.Processed++

		payout.Status = models.PayoutStatusProcessing
		if err := ps.repo.UpdatePayout(ctx, payout); err != nil {
			log.Printf("[PayoutService] Failed to mark payout %s processing: %v", payout.ID, err)
			summary.Failed++
			continue
		}

		sig, err := ps.ledger.TreasuryTransfer(ctx, payout.Recipient, blockchain.SOLToLamports(payout.Amount))
		if err != nil {
			ps.failPayout(ctx, payout, err)
			summary.Failed++
			continue
		}

		ps.completePayout(ctx, payout, sig)
		summary.Completed++

		if payout.BetID != nil {
			ps.markBetPaid(ctx, *payout.BetID)
		}
	}

	log.Printf("[PayoutService] Payout batch done: %d completed, %d failed", summary.Completed, summary.Failed)
	return summary, nil
}

// ProcessRefunds returns rejected deposits from the originating
// deposit address's own balance, minus the network fee reservation.
// The per-address key is decrypted at the moment of use only.
func (ps *PayoutService) ProcessRefunds(ctx context.Context) (*DispatchSummary, error) {
	if !ps.refundsInFlight.CompareAndSwap(false, true) {
		return nil, ErrDispatchInFlight
	}
	defer ps.refundsInFlight.Store(false)

	pending, err := ps.repo.GetPendingPayouts(ctx, models.PayoutKindRefund)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending refunds: %w", err)
	}

	summary := &DispatchSummary{}

	for _, refund := range pending {
		summary.Processed++

		if refund.DepositAddressID == nil {
			ps.failPayout(ctx, refund, errors.New("refund has no deposit address"))
			summary.Failed++
			continue
		}

		addr, err := ps.repo.GetDepositAddressByID(ctx, *refund.DepositAddressID)
		if err != nil {
			ps.failPayout(ctx, refund, fmt.Errorf("deposit address lookup failed: %w", err))
			summary.Failed++
			continue
		}

		key, err := ps.keyStore.Decrypt(addr.EncryptedKey)
		if err != nil {
			// Integrity failure: abort this item, keep going.
			ps.failPayout(ctx, refund, fmt.Errorf("key decryption failed: %w", err))
			summary.Failed++
			continue
		}

		refund.Status = models.PayoutStatusProcessing
		if err := ps.repo.UpdatePayout(ctx, refund); err != nil {
			log.Printf("[PayoutService] Failed to mark refund %s processing: %v", refund.ID, err)
			summary.Failed++
			continue
		}

		balance, err := ps.ledger.GetBalance(ctx, addr.Address)
		if err != nil {
			ps.failPayout(ctx, refund, fmt.Errorf("balance query failed: %w", err))
			summary.Failed++
			continue
		}
		if balance <= blockchain.FeeReserveLamports {
			ps.failPayout(ctx, refund, errors.New("deposit balance cannot cover the network fee"))
			summary.Failed++
			continue
		}

		send := blockchain.SOLToLamports(refund.Amount)
		if available := balance - blockchain.FeeReserveLamports; send > available {
			send = available
		}

		sig, err := ps.ledger.Transfer(ctx, solana.PrivateKey(key), refund.Recipient, send)
		if err != nil {
			ps.failPayout(ctx, refund, err)
			summary.Failed++
			continue
		}

		ps.completePayout(ctx, refund, sig)
		summary.Completed++
	}

	log.Printf("[PayoutService] Refund batch done: %d completed, %d failed", summary.Completed, summary.Failed)
	return summary, nil
}

// CollectDeposits sweeps every confirmed deposit address into the
// treasury, minus the fee reservation, optionally splitting a
// configured percentage to the operations wallet. Addresses already
// swept, or with too little balance to cover fees, are skipped.
func (ps *PayoutService) CollectDeposits(ctx context.Context) (*DispatchSummary, error) {
	if !ps.collectInFlight.CompareAndSwap(false, true) {
		return nil, ErrDispatchInFlight
	}
	defer ps.collectInFlight.Store(false)

	treasury := ps.ledger.TreasuryAddress()
	if treasury == "" {
		return nil, errors.New("treasury wallet not configured")
	}

	confirmed, err := ps.repo.GetConfirmedDeposits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch confirmed deposits: %w", err)
	}

	// A split sweep broadcasts two transactions, so a fee must be
	// reserved for each leg.
	feeReserve := blockchain.FeeReserveLamports
	splitActive := ps.opsWallet != "" && ps.opsSplitPercent > 0
	if splitActive {
		feeReserve *= 2
	}

	summary := &DispatchSummary{}

	for _, addr := range confirmed {
		existing, err := ps.repo.GetCollectionForDeposit(ctx, addr.ID)
		if err != nil {
			log.Printf("[PayoutService] Error checking collection for %s: %v", addr.Address, err)
			continue
		}
		if existing != nil {
			summary.Skipped++
			continue
		}

		balance, err := ps.ledger.GetBalance(ctx, addr.Address)
		if err != nil {
			log.Printf("[PayoutService] Error checking balance of %s: %v", addr.Address, err)
			continue
		}
		if balance <= feeReserve {
			summary.Skipped++
			continue
		}
		sweep := balance - feeReserve

		summary.Processed++

		collection := &models.Payout{
			ID:               uuid.New(),
			Kind:             models.PayoutKindCollection,
			DepositAddressID: &addr.ID,
			Recipient:        treasury,
			Amount:           blockchain.LamportsToSOL(sweep),
			Status:           models.PayoutStatusProcessing,
		}
		if err := ps.repo.CreatePayout(ctx, collection); err != nil {
			log.Printf("[PayoutService] Failed to record collection for %s: %v", addr.Address, err)
			summary.Failed++
			continue
		}

		key, err := ps.keyStore.Decrypt(addr.EncryptedKey)
		if err != nil {
			ps.failPayout(ctx, collection, fmt.Errorf("key decryption failed: %w", err))
			summary.Failed++
			continue
		}

		opsShare := uint64(0)
		if splitActive {
			opsShare = uint64(float64(sweep) * ps.opsSplitPercent / 100)
		}

		sig, err := ps.ledger.Transfer(ctx, solana.PrivateKey(key), treasury, sweep-opsShare)
		if err != nil {
			ps.failPayout(ctx, collection, err)
			summary.Failed++
			continue
		}

		if opsShare > 0 {
			if _, err := ps.ledger.Transfer(ctx, solana.PrivateKey(key), ps.opsWallet, opsShare); err != nil {
				// Treasury leg already landed; record the partial state.
				ps.failPayout(ctx, collection, fmt.Errorf("operations split failed after treasury sweep %s: %w", sig, err))
				summary.Failed++
				continue
			}
		}

		ps.completePayout(ctx, collection, sig)
		summary.Completed++
	}

	log.Printf("[PayoutService] Collection done: %d swept, %d failed, %d skipped",
		summary.Completed, summary.Failed, summary.Skipped)
	return summary, nil
}

func (ps *PayoutService) failPayout(ctx context.Context, payout *models.Payout, cause error) {
	detail := cause.Error()
	payout.Status = models.PayoutStatusFailed
	payout.ErrorDetail = &detail
	if err := ps.repo.UpdatePayout(ctx, payout); err != nil {
		log.Printf("[PayoutService] Failed to record failure for payout %s: %v", payout.ID, err)
	}
	log.Printf("[PayoutService] %s %s failed: %v", payout.Kind, payout.ID, cause)
}

func (ps *PayoutService) completePayout(ctx context.Context, payout *models.Payout, signature string) {
	now := time.Now()
	payout.Status = models.PayoutStatusCompleted
	payout.TxSignature = &signature
	payout.CompletedAt = &now
	payout.ErrorDetail = nil
	if err := ps.repo.UpdatePayout(ctx, payout); err != nil {
		log.Printf("[PayoutService] Failed to record completion for payout %s: %v", payout.ID, err)
	}
}

func (ps *PayoutService) markBetPaid(ctx context.Context, betID uuid.UUID) {
	bet, err := ps.repo.GetBetByID(ctx, betID)
	if err != nil {
		log.Printf("[PayoutService] Failed to load bet %s: %v", betID, err)
		return
	}
	bet.PayoutStatus = models.BetPayoutStatusPaid
	if err := ps.repo.UpdateBet(ctx, bet); err != nil {
		log.Printf("[PayoutService] Failed to mark bet %s paid: %v", betID, err)
	}
}
