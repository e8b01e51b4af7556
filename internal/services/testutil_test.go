package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"racebook/internal/blockchain"
	"racebook/internal/models"
	"racebook/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Race{},
		&models.Horse{},
		&models.DepositAddress{},
		&models.Bet{},
		&models.Payout{},
		&models.AppSetting{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func testLimits() WagerLimits {
	return WagerLimits{
		Min: decimal.RequireFromString("0.01"),
		Max: decimal.RequireFromString("20"),
	}
}

// createTestRace persists a race with numbered horses in the given status.
func createTestRace(t *testing.T, repo *repository.Repository, status models.RaceStatus, horseCount int) *models.Race {
	race := &models.Race{
		ID:          uuid.New(),
		Title:       "Test Race",
		Status:      status,
		HorseCount:  horseCount,
		ScheduledAt: time.Now().Add(1 * time.Hour),
	}
	for i := 1; i <= horseCount; i++ {
		race.Horses = append(race.Horses, models.Horse{
			ID:     uuid.New(),
			RaceID: race.ID,
			Number: i,
			Name:   "Horse",
		})
	}
	if err := repo.CreateRace(context.Background(), race); err != nil {
		t.Fatalf("failed to create race: %v", err)
	}
	return race
}

func createTestDeposit(t *testing.T, repo *repository.Repository, raceID uuid.UUID, horseNumber int, address string, expiresAt time.Time) *models.DepositAddress {
	addr := &models.DepositAddress{
		ID:           uuid.New(),
		Address:      address,
		EncryptedKey: "plain:1",
		RaceID:       raceID,
		HorseNumber:  horseNumber,
		Status:       models.DepositStatusWaiting,
		ExpiresAt:    expiresAt,
	}
	if err := repo.CreateDepositAddress(context.Background(), addr); err != nil {
		t.Fatalf("failed to create deposit address: %v", err)
	}
	return addr
}

type sentTransfer struct {
	From     string
	To       string
	Lamports uint64
}

// fakeLedger is an in-memory LedgerGateway for tests.
type fakeLedger struct {
	balances    map[string]uint64
	signatures  map[string][]string
	transfers   map[string]*blockchain.Transfer
	treasury    string
	balanceErr  map[string]error
	transferErr error
	sent        []sentTransfer
	sigCounter  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:   make(map[string]uint64),
		signatures: make(map[string][]string),
		transfers:  make(map[string]*blockchain.Transfer),
		balanceErr: make(map[string]error),
		treasury:   "TreasuryPubkey1111111111111111111111111111",
	}
}

func (f *fakeLedger) GetBalance(ctx context.Context, address string) (uint64, error) {
	if err := f.balanceErr[address]; err != nil {
		return 0, err
	}
	return f.balances[address], nil
}

func (f *fakeLedger) GetRecentSignatures(ctx context.Context, address string, limit int) ([]string, error) {
	sigs := f.signatures[address]
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

func (f *fakeLedger) GetTransfer(ctx context.Context, signature, address string) (*blockchain.Transfer, error) {
	transfer, ok := f.transfers[signature]
	if !ok {
		return nil, nil
	}
	return transfer, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, from solana.PrivateKey, to string, lamports uint64) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.sent = append(f.sent, sentTransfer{From: from.PublicKey().String(), To: to, Lamports: lamports})
	f.sigCounter++
	return "fakesig" + string(rune('0'+f.sigCounter)), nil
}

func (f *fakeLedger) TreasuryTransfer(ctx context.Context, to string, lamports uint64) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.sent = append(f.sent, sentTransfer{From: f.treasury, To: to, Lamports: lamports})
	f.sigCounter++
	return "fakesig" + string(rune('0'+f.sigCounter)), nil
}

func (f *fakeLedger) TreasuryAddress() string {
	return f.treasury
}

// fundAddress registers an inbound transfer on the fake ledger.
func (f *fakeLedger) fundAddress(address, signature, sender string, lamports uint64) {
	f.balances[address] += lamports
	f.signatures[address] = append([]string{signature}, f.signatures[address]...)
	f.transfers[signature] = &blockchain.Transfer{
		Signature: signature,
		Sender:    sender,
		Lamports:  lamports,
	}
}

var errLedgerDown = errors.New("ledger unavailable")

var _ LedgerGateway = (*fakeLedger)(nil)
