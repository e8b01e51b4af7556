package repository

import (
	"context"
	"testing"
	"time"

	"racebook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRepo(t *testing.T) *Repository {
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

	return NewRepository(db)
}

func seedDeposit(t *testing.T, repo *Repository, status models.DepositStatus, expiresAt time.Time) *models.DepositAddress {
	addr := &models.DepositAddress{
		ID:           uuid.New(),
		Address:      "Addr" + uuid.NewString()[:8],
		EncryptedKey: "plain:1",
		RaceID:       uuid.New(),
		HorseNumber:  1,
		Status:       status,
		ExpiresAt:    expiresAt,
	}
	if err := repo.CreateDepositAddress(context.Background(), addr); err != nil {
		t.Fatalf("failed to create deposit: %v", err)
	}
	return addr
}

// FinalizeDeposit is the write-once guard: the first terminal write
// wins and every later attempt reports false.
func TestFinalizeDepositWriteOnce(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addr := seedDeposit(t, repo, models.DepositStatusWaiting, time.Now().Add(30*time.Minute))

	amount := decimal.RequireFromString("1.5")
	sig := "sig1"
	ok, err := repo.FinalizeDeposit(ctx, addr.ID, models.DepositStatusConfirmed, &amount, &sig)
	if err != nil {
		t.Fatalf("FinalizeDeposit failed: %v", err)
	}
	if !ok {
		t.Fatal("first finalize should succeed")
	}

	// A competing writer loses and must not overwrite anything.
	other := decimal.RequireFromString("9")
	otherSig := "sig2"
	ok, err = repo.FinalizeDeposit(ctx, addr.ID, models.DepositStatusExpired, &other, &otherSig)
	if err != nil {
		t.Fatalf("second FinalizeDeposit errored: %v", err)
	}
	if ok {
		t.Fatal("second finalize must report false")
	}

	reloaded, err := repo.GetDepositAddressByID(ctx, addr.ID)
	if err != nil {
		t.Fatalf("failed to reload deposit: %v", err)
	}
	if reloaded.Status != models.DepositStatusConfirmed {
		t.Errorf("status %s, want CONFIRMED to stick", reloaded.Status)
	}
	if reloaded.TransferSignature == nil || *reloaded.TransferSignature != "sig1" {
		t.Errorf("signature %v, want the first writer's sig1", reloaded.TransferSignature)
	}
}

// Confirmation and bet creation are one transaction: when the bet
// insert fails, the status change rolls back with it.
func TestFinalizeDepositWithBetAtomic(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addr := seedDeposit(t, repo, models.DepositStatusWaiting, time.Now().Add(30*time.Minute))
	amount := decimal.RequireFromString("1.5")

	// Occupy the transfer signature so the bet insert collides with
	// the unique index.
	taken := &models.Bet{
		ID:               uuid.New(),
		RaceID:           uuid.New(),
		HorseNumber:      1,
		DepositAddressID: uuid.New(),
		Bettor:           "Other",
		Amount:           amount,
		Signature:        "sig1",
		OddsAtPlacement:  decimal.RequireFromString("1"),
		PayoutStatus:     models.BetPayoutStatusNone,
	}
	if err := repo.CreateBet(ctx, taken); err != nil {
		t.Fatalf("failed to seed conflicting bet: %v", err)
	}

	bet := &models.Bet{
		ID:               uuid.New(),
		RaceID:           addr.RaceID,
		HorseNumber:      addr.HorseNumber,
		DepositAddressID: addr.ID,
		Bettor:           "Bettor",
		Amount:           amount,
		Signature:        "sig1",
		OddsAtPlacement:  decimal.RequireFromString("1"),
		PayoutStatus:     models.BetPayoutStatusNone,
	}
	ok, err := repo.FinalizeDepositWithBet(ctx, addr.ID, amount, "sig1", bet)
	if err == nil {
		t.Fatal("expected the duplicate signature to fail the transaction")
	}
	if ok {
		t.Error("a failed transaction must not report finalized")
	}

	reloaded, err := repo.GetDepositAddressByID(ctx, addr.ID)
	if err != nil {
		t.Fatalf("failed to reload deposit: %v", err)
	}
	if reloaded.Status != models.DepositStatusWaiting {
		t.Errorf("status %s, want WAITING after rollback", reloaded.Status)
	}

	// With a free signature both rows commit together, exactly once.
	bet.ID = uuid.New()
	bet.Signature = "sig2"
	ok, err = repo.FinalizeDepositWithBet(ctx, addr.ID, amount, "sig2", bet)
	if err != nil || !ok {
		t.Fatalf("expected finalize to succeed, ok=%v err=%v", ok, err)
	}
	stored, err := repo.GetBetByDepositAddress(ctx, addr.ID)
	if err != nil || stored == nil {
		t.Fatalf("expected the bet to be stored, err=%v", err)
	}

	ok, err = repo.FinalizeDepositWithBet(ctx, addr.ID, amount, "sig3", bet)
	if err != nil {
		t.Fatalf("repeat finalize errored: %v", err)
	}
	if ok {
		t.Error("a finalized deposit must not finalize again")
	}
}

// Rejection and refund commit together.
func TestFinalizeDepositWithRefundAtomic(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addr := seedDeposit(t, repo, models.DepositStatusWaiting, time.Now().Add(30*time.Minute))
	amount := decimal.RequireFromString("0.001")

	refund := &models.Payout{
		ID:               uuid.New(),
		Kind:             models.PayoutKindRefund,
		DepositAddressID: &addr.ID,
		Recipient:        "Sender",
		Amount:           amount,
		Status:           models.PayoutStatusPending,
	}
	ok, err := repo.FinalizeDepositWithRefund(ctx, addr.ID, models.DepositStatusRejectedTooSmall, amount, "sig1", refund)
	if err != nil || !ok {
		t.Fatalf("expected finalize to succeed, ok=%v err=%v", ok, err)
	}

	pending, err := repo.GetPendingPayouts(ctx, models.PayoutKindRefund)
	if err != nil {
		t.Fatalf("failed to load refunds: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 queued refund, got %d", len(pending))
	}

	// An already finalized address takes no second refund.
	refund.ID = uuid.New()
	ok, err = repo.FinalizeDepositWithRefund(ctx, addr.ID, models.DepositStatusRejectedTooSmall, amount, "sig2", refund)
	if err != nil {
		t.Fatalf("repeat finalize errored: %v", err)
	}
	if ok {
		t.Error("a finalized deposit must not finalize again")
	}
	pending, err = repo.GetPendingPayouts(ctx, models.PayoutKindRefund)
	if err != nil {
		t.Fatalf("failed to reload refunds: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected the refund count to stay at 1, got %d", len(pending))
	}
}

func TestWaitingAndExpiredQueries(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	live := seedDeposit(t, repo, models.DepositStatusWaiting, now.Add(10*time.Minute))
	stale := seedDeposit(t, repo, models.DepositStatusWaiting, now.Add(-10*time.Minute))
	seedDeposit(t, repo, models.DepositStatusConfirmed, now.Add(10*time.Minute))

	waiting, err := repo.GetWaitingDeposits(ctx, now)
	if err != nil {
		t.Fatalf("GetWaitingDeposits failed: %v", err)
	}
	if len(waiting) != 1 || waiting[0].ID != live.ID {
		t.Errorf("expected only the live waiting deposit, got %d", len(waiting))
	}

	expired, err := repo.GetExpiredWaitingDeposits(ctx, now)
	if err != nil {
		t.Fatalf("GetExpiredWaitingDeposits failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Errorf("expected only the stale waiting deposit, got %d", len(expired))
	}
}

func TestTransitionRaceStatus(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	race := &models.Race{
		ID:          uuid.New(),
		Title:       "Race",
		Status:      models.RaceStatusPending,
		HorseCount:  2,
		ScheduledAt: time.Now().Add(1 * time.Hour),
	}
	if err := repo.CreateRace(ctx, race); err != nil {
		t.Fatalf("failed to create race: %v", err)
	}

	ok, err := repo.TransitionRaceStatus(ctx, race.ID, models.RaceStatusPending, models.RaceStatusOpen)
	if err != nil || !ok {
		t.Fatalf("expected transition to succeed, ok=%v err=%v", ok, err)
	}

	// Wrong expected status: no-op.
	ok, err = repo.TransitionRaceStatus(ctx, race.ID, models.RaceStatusPending, models.RaceStatusOpen)
	if err != nil {
		t.Fatalf("transition errored: %v", err)
	}
	if ok {
		t.Error("transition from a stale status must report false")
	}
}

func TestCompleteRaceOnce(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	race := &models.Race{
		ID:          uuid.New(),
		Title:       "Race",
		Status:      models.RaceStatusClosed,
		HorseCount:  2,
		ScheduledAt: time.Now(),
	}
	if err := repo.CreateRace(ctx, race); err != nil {
		t.Fatalf("failed to create race: %v", err)
	}

	ok, err := repo.CompleteRace(ctx, race.ID, 2)
	if err != nil || !ok {
		t.Fatalf("expected completion to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = repo.CompleteRace(ctx, race.ID, 1)
	if err != nil {
		t.Fatalf("second completion errored: %v", err)
	}
	if ok {
		t.Error("a race completes exactly once")
	}

	reloaded, err := repo.GetRaceByID(ctx, race.ID)
	if err != nil {
		t.Fatalf("failed to reload race: %v", err)
	}
	if reloaded.WinningHorse == nil || *reloaded.WinningHorse != 2 {
		t.Errorf("winning horse %v, want the first writer's 2", reloaded.WinningHorse)
	}
}

func TestGetRacePools(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	raceID := uuid.New()

	amounts := map[int][]string{
		1: {"2", "3"},
		2: {"5"},
	}
	for horse, stakes := range amounts {
		for _, stake := range stakes {
			bet := &models.Bet{
				ID:               uuid.New(),
				RaceID:           raceID,
				HorseNumber:      horse,
				DepositAddressID: uuid.New(),
				Bettor:           "Bettor",
				Amount:           decimal.RequireFromString(stake),
				Signature:        "sig-" + uuid.NewString(),
				OddsAtPlacement:  decimal.RequireFromString("1"),
				PayoutStatus:     models.BetPayoutStatusNone,
			}
			if err := repo.CreateBet(ctx, bet); err != nil {
				t.Fatalf("failed to create bet: %v", err)
			}
		}
	}

	pools, err := repo.GetRacePools(ctx, raceID)
	if err != nil {
		t.Fatalf("GetRacePools failed: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(pools))
	}
	for _, pool := range pools {
		switch pool.HorseNumber {
		case 1:
			if !pool.Total.Equal(decimal.RequireFromString("5")) {
				t.Errorf("horse 1 pool %s, want 5", pool.Total)
			}
		case 2:
			if !pool.Total.Equal(decimal.RequireFromString("5")) {
				t.Errorf("horse 2 pool %s, want 5", pool.Total)
			}
		default:
			t.Errorf("unexpected horse %d in pools", pool.HorseNumber)
		}
	}
}

func TestGetCollectionForDeposit(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	addr := seedDeposit(t, repo, models.DepositStatusConfirmed, time.Now())

	existing, err := repo.GetCollectionForDeposit(ctx, addr.ID)
	if err != nil {
		t.Fatalf("GetCollectionForDeposit failed: %v", err)
	}
	if existing != nil {
		t.Fatal("expected nil before any sweep")
	}

	collection := &models.Payout{
		ID:               uuid.New(),
		Kind:             models.PayoutKindCollection,
		DepositAddressID: &addr.ID,
		Recipient:        "Treasury",
		Amount:           decimal.RequireFromString("1"),
		Status:           models.PayoutStatusCompleted,
	}
	if err := repo.CreatePayout(ctx, collection); err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}

	existing, err = repo.GetCollectionForDeposit(ctx, addr.ID)
	if err != nil {
		t.Fatalf("GetCollectionForDeposit failed: %v", err)
	}
	if existing == nil {
		t.Fatal("expected the recorded sweep to be found")
	}
}

func TestUpsertSetting(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertSetting(ctx, "house_edge_percent", "5"); err != nil {
		t.Fatalf("UpsertSetting failed: %v", err)
	}
	if err := repo.UpsertSetting(ctx, "house_edge_percent", "7"); err != nil {
		t.Fatalf("second UpsertSetting failed: %v", err)
	}

	value, err := repo.GetSetting(ctx, "house_edge_percent")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "7" {
		t.Errorf("setting value %s, want 7", value)
	}

	missing, err := repo.GetSetting(ctx, "unset")
	if err != nil {
		t.Fatalf("GetSetting for missing key errored: %v", err)
	}
	if missing != "" {
		t.Errorf("missing setting should be empty, got %s", missing)
	}
}
