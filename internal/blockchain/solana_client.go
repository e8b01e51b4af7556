package blockchain

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

const lamportsPerSOL = 1_000_000_000

// FeeReserveLamports is held back when spending a deposit address's
// own balance so the transfer can pay its network fee.
const FeeReserveLamports uint64 = 5_000

// SolanaClient wraps the ledger RPC surface the engine needs: balance
// queries, signature history, classified transfers and signed outbound
// transfers from the treasury or a custodied per-deposit key.
type SolanaClient struct {
	rpcClient      *rpc.Client
	network        string
	treasury       *solana.Wallet
	confirmTimeout time.Duration
}

// NewSolanaClient creates a new Solana client
func NewSolanaClient(network, treasuryPrivateKey string) (*SolanaClient, error) {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = "https://api.mainnet-beta.solana.com"
	case "devnet":
		rpcURL = "https://api.devnet.solana.com"
	case "testnet":
		rpcURL = "https://api.testnet.solana.com"
	default:
		rpcURL = "https://api.devnet.solana.com"
	}

	client := &SolanaClient{
		rpcClient:      rpc.New(rpcURL),
		network:        network,
		confirmTimeout: 60 * time.Second,
	}

	if treasuryPrivateKey != "" {
		wallet, err := solana.WalletFromPrivateKeyBase58(treasuryPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid treasury private key: %w", err)
		}
		client.treasury = wallet
		log.Printf("Treasury wallet loaded: %s", wallet.PublicKey())
	}

	return client, nil
}

// TreasuryAddress returns the operating treasury public key, or ""
// when no treasury key is configured.
func (s *SolanaClient) TreasuryAddress() string {
	if s.treasury == nil {
		return ""
	}
	return s.treasury.PublicKey().String()
}

// ValidateWalletAddress validates a Solana wallet address format
func (s *SolanaClient) ValidateWalletAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// GetBalance returns the current lamport balance of an address.
func (s *SolanaClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	balance, err := s.rpcClient.GetBalance(ctx, pubKey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance.Value, nil
}

// GetRecentSignatures returns up to limit recent transaction
// signatures touching an address, newest first.
func (s *SolanaClient) GetRecentSignatures(ctx context.Context, address string, limit int) ([]string, error) {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	results, err := s.rpcClient.GetSignaturesForAddressWithOpts(ctx, pubKey, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures: %w", err)
	}

	signatures := make([]string, 0, len(results))
	for _, r := range results {
		signatures = append(signatures, r.Signature.String())
	}
	return signatures, nil
}

// GetTransfer fetches a confirmed transaction and classifies it as an
// inbound transfer to the given address. Returns nil when the
// transaction failed on-chain or did not credit the address.
func (s *SolanaClient) GetTransfer(ctx context.Context, signature, address string) (*Transfer, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	target, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	result, err := s.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if result == nil || result.Meta == nil {
		return nil, nil
	}
	if result.Meta.Err != nil {
		// Failed on-chain execution moves no funds.
		return nil, nil
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	return ClassifyTransfer(signature, tx.Message.AccountKeys, result.Meta.PreBalances, result.Meta.PostBalances, target), nil
}

// Transfer sends lamports from a custodied private key and waits for
// confirmation. The key is held in memory only for the duration of
// the call.
func (s *SolanaClient) Transfer(ctx context.Context, from solana.PrivateKey, to string, lamports uint64) (string, error) {
	toPub, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	fromPub := from.PublicKey()

	recent, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	instruction := system.NewTransferInstruction(lamports, fromPub, toPub).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(fromPub),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(fromPub) {
			return &from
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return "", err
	}

	return sig.String(), nil
}

// TreasuryTransfer sends lamports from the operating treasury.
func (s *SolanaClient) TreasuryTransfer(ctx context.Context, to string, lamports uint64) (string, error) {
	if s.treasury == nil {
		return "", fmt.Errorf("treasury wallet not configured")
	}
	return s.Transfer(ctx, s.treasury.PrivateKey, to, lamports)
}

// awaitConfirmation polls signature status until the transaction is
// confirmed or the confirmation window runs out.
func (s *SolanaClient) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(s.confirmTimeout)

	for time.Now().Before(deadline) {
		status, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return fmt.Errorf("failed to get signature status: %w", err)
		}

		if len(status.Value) > 0 && status.Value[0] != nil {
			st := status.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return fmt.Errorf("transaction %s not confirmed within %v", sig, s.confirmTimeout)
}

// LamportsToSOL converts a lamport amount to a decimal SOL amount.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(lamportsPerSOL))
}

// SOLToLamports converts a decimal SOL amount to lamports, truncating
// sub-lamport precision.
func SOLToLamports(amount decimal.Decimal) uint64 {
	return uint64(amount.Mul(decimal.NewFromInt(lamportsPerSOL)).IntPart())
}
