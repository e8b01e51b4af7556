package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"racebook/internal/models"
	"racebook/internal/repository"
	"racebook/internal/wallet"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

var (
	ErrRaceNotOpen        = errors.New("race is not open for betting")
	ErrRaceStarted        = errors.New("race has already started")
	ErrHorseOutOfRange    = errors.New("horse number is out of range for this race")
	ErrInvalidOwnerWallet = errors.New("owner wallet is not a valid address")
	ErrDepositNotFound    = errors.New("deposit address not found")
)

// DepositService mints single-use deposit addresses and reports their
// reconciliation status.
type DepositService struct {
	repo          *repository.Repository
	keyStore      *wallet.KeyStore
	expiryMinutes int
}

func NewDepositService(repo *repository.Repository, keyStore *wallet.KeyStore, expiryMinutes int) *DepositService {
	return &DepositService{
		repo:          repo,
		keyStore:      keyStore,
		expiryMinutes: expiryMinutes,
	}
}

// Allocate mints a fresh keypair for one wager and persists the
// address in WAITING. The keypair is never reused; the private key is
// only ever persisted through the key store envelope, so a failed
// encryption aborts the allocation instead of leaking the secret.
func (ds *DepositService) Allocate(ctx context.Context, raceID uuid.UUID, horseNumber int, ownerWallet *string) (*models.DepositAddress, error) {
	race, err := ds.repo.GetRaceByID(ctx, raceID)
	if err != nil {
		return nil, ErrRaceNotFound
	}

	if race.Status != models.RaceStatusOpen {
		return nil, ErrRaceNotOpen
	}
	if time.Now().After(race.ScheduledAt) {
		return nil, ErrRaceStarted
	}
	if horseNumber < 1 || horseNumber > race.HorseCount {
		return nil, ErrHorseOutOfRange
	}
	if ownerWallet != nil {
		if _, err := solana.PublicKeyFromBase58(*ownerWallet); err != nil {
			return nil, ErrInvalidOwnerWallet
		}
	}

	keypair := solana.NewWallet()

	envelope, err := ds.keyStore.Encrypt(keypair.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt deposit key: %w", err)
	}

	addr := &models.DepositAddress{
		ID:           uuid.New(),
		Address:      keypair.PublicKey().String(),
		EncryptedKey: envelope,
		RaceID:       race.ID,
		HorseNumber:  horseNumber,
		OwnerWallet:  ownerWallet,
		Status:       models.DepositStatusWaiting,
		ExpiresAt:    time.Now().Add(time.Duration(ds.expiryMinutes) * time.Minute),
	}

	if err := ds.repo.CreateDepositAddress(ctx, addr); err != nil {
		return nil, fmt.Errorf("failed to persist deposit address: %w", err)
	}

	log.Printf("Allocated deposit address %s for race %s horse %d (expires %s)",
		addr.Address, race.ID, horseNumber, addr.ExpiresAt.Format(time.RFC3339))

	return addr, nil
}

// GetDepositStatus returns the reconciliation state of a wager,
// including the bet and locked-in odds once confirmed.
func (ds *DepositService) GetDepositStatus(ctx context.Context, id uuid.UUID) (*models.DepositStatusResponse, error) {
	addr, err := ds.repo.GetDepositAddressByID(ctx, id)
	if err != nil {
		return nil, ErrDepositNotFound
	}

	resp := &models.DepositStatusResponse{
		ID:          addr.ID.String(),
		Address:     addr.Address,
		Status:      string(addr.Status),
		HorseNumber: addr.HorseNumber,
		ExpiresAt:   addr.ExpiresAt,
	}
	if addr.ObservedAmount != nil {
		s := addr.ObservedAmount.String()
		resp.ObservedAmount = &s
	}

	if addr.Status == models.DepositStatusConfirmed {
		bet, err := ds.repo.GetBetByDepositAddress(ctx, addr.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bet: %w", err)
		}
		if bet != nil {
			betID := bet.ID.String()
			odds := bet.OddsAtPlacement.StringFixed(4)
			resp.BetID = &betID
			resp.Odds = &odds
		}
	}

	return resp, nil
}
