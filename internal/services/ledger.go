package services

import (
	"context"

	"racebook/internal/blockchain"

	"github.com/gagliardetto/solana-go"
)

// LedgerGateway is the external ledger surface the engine consumes.
// Implemented by blockchain.SolanaClient; faked in tests.
type LedgerGateway interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetRecentSignatures(ctx context.Context, address string, limit int) ([]string, error)
	GetTransfer(ctx context.Context, signature, address string) (*blockchain.Transfer, error)
	Transfer(ctx context.Context, from solana.PrivateKey, to string, lamports uint64) (string, error)
	TreasuryTransfer(ctx context.Context, to string, lamports uint64) (string, error)
	TreasuryAddress() string
}

var _ LedgerGateway = (*blockchain.SolanaClient)(nil)
