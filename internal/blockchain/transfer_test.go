package blockchain

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func testKeys(n int) []solana.PublicKey {
	keys := make([]solana.PublicKey, n)
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}
	return keys
}

func TestClassifyTransferCredit(t *testing.T) {
	keys := testKeys(3)
	target := keys[1]

	// Fee payer sends 1 SOL plus 5000 lamports fee to the target.
	pre := []uint64{2_000_005_000, 0, 1}
	post := []uint64{1_000_000_000, 1_000_000_000, 1}

	transfer := ClassifyTransfer("sig1", keys, pre, post, target)
	if transfer == nil {
		t.Fatal("expected a classified transfer")
	}
	if transfer.Lamports != 1_000_000_000 {
		t.Errorf("credited %d, want 1000000000", transfer.Lamports)
	}
	if transfer.Sender != keys[0].String() {
		t.Errorf("sender %s, want the fee payer %s", transfer.Sender, keys[0])
	}
	if transfer.Signature != "sig1" {
		t.Errorf("signature %s, want sig1", transfer.Signature)
	}
}

func TestValidateWalletAddress(t *testing.T) {
	client, err := NewSolanaClient("devnet", "")
	if err != nil {
		t.Fatalf("NewSolanaClient failed: %v", err)
	}

	if !client.ValidateWalletAddress(solana.NewWallet().PublicKey().String()) {
		t.Error("a freshly minted public key must validate")
	}
	for _, bad := range []string{"", "not-base58!", "abc"} {
		if client.ValidateWalletAddress(bad) {
			t.Errorf("%q should not validate", bad)
		}
	}
}

func TestClassifyTransferNoCredit(t *testing.T) {
	keys := testKeys(2)
	target := keys[1]

	// Target balance unchanged.
	pre := []uint64{1_000_000_000, 500}
	post := []uint64{999_995_000, 500}
	if transfer := ClassifyTransfer("sig1", keys, pre, post, target); transfer != nil {
		t.Errorf("unchanged balance should not classify, got %+v", transfer)
	}

	// Target debited, not credited.
	pre = []uint64{1_000_000_000, 500}
	post = []uint64{1_000_000_400, 100}
	if transfer := ClassifyTransfer("sig1", keys, pre, post, target); transfer != nil {
		t.Errorf("debit should not classify as an inbound transfer, got %+v", transfer)
	}
}

func TestClassifyTransferTargetAbsent(t *testing.T) {
	keys := testKeys(2)
	outsider := solana.NewWallet().PublicKey()

	pre := []uint64{1_000_000_000, 0}
	post := []uint64{500_000_000, 500_000_000}
	if transfer := ClassifyTransfer("sig1", keys, pre, post, outsider); transfer != nil {
		t.Errorf("transaction not touching the target should not classify, got %+v", transfer)
	}
}

func TestClassifyTransferMalformedMeta(t *testing.T) {
	keys := testKeys(2)

	if transfer := ClassifyTransfer("sig1", nil, nil, nil, keys[0]); transfer != nil {
		t.Error("empty account list should not classify")
	}

	// Balance arrays shorter than the account list.
	pre := []uint64{1_000_000_000}
	post := []uint64{500_000_000}
	if transfer := ClassifyTransfer("sig1", keys, pre, post, keys[1]); transfer != nil {
		t.Error("mismatched balance arrays should not classify")
	}
}

// The fee payer is index 0; when it funded the transfer it is reported
// as the sender even if other accounts also decreased.
func TestClassifyTransferPrefersFeePayer(t *testing.T) {
	keys := testKeys(4)
	target := keys[2]

	pre := []uint64{1_000_000_000, 700, 0, 300}
	post := []uint64{500_000_000, 600, 499_995_000, 200}

	transfer := ClassifyTransfer("sig1", keys, pre, post, target)
	if transfer == nil {
		t.Fatal("expected a classified transfer")
	}
	if transfer.Sender != keys[0].String() {
		t.Errorf("sender %s, want fee payer %s", transfer.Sender, keys[0])
	}
}

func TestLamportConversions(t *testing.T) {
	if sol := LamportsToSOL(1_500_000_000); sol.String() != "1.5" {
		t.Errorf("LamportsToSOL(1.5e9) = %s, want 1.5", sol)
	}
	if sol := LamportsToSOL(1); sol.String() != "0.000000001" {
		t.Errorf("LamportsToSOL(1) = %s, want 0.000000001", sol)
	}
	if lamports := SOLToLamports(LamportsToSOL(123_456_789)); lamports != 123_456_789 {
		t.Errorf("conversion roundtrip gave %d", lamports)
	}
}
