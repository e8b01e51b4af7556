package blockchain

import (
	"github.com/gagliardetto/solana-go"
)

// Transfer is a normalized inbound transfer to a watched address.
type Transfer struct {
	Signature string
	Sender    string
	Lamports  uint64
}

// ClassifyTransfer determines whether a transaction credited the
// target address, and if so, who sent the funds and how much arrived.
// It works off the pre/post balance deltas recorded in the transaction
// meta rather than instruction parsing, which covers plain transfers
// and anything else that moves lamports to the address.
//
// Sender identification: the fee payer (account index 0) is preferred
// when its balance decreased, since the fee payer provably signed the
// transaction. Otherwise the first account showing a balance decrease
// is used. The latter is an approximation of sender identity, not a
// signature check.
func ClassifyTransfer(signature string, accountKeys []solana.PublicKey, preBalances, postBalances []uint64, target solana.PublicKey) *Transfer {
	if len(accountKeys) == 0 ||
		len(preBalances) != len(accountKeys) ||
		len(postBalances) != len(accountKeys) {
		return nil
	}

	targetIdx := -1
	for i, key := range accountKeys {
		if key.Equals(target) {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil
	}

	if postBalances[targetIdx] <= preBalances[targetIdx] {
		// Zero or negative delta: not a credit to this address.
		return nil
	}
	credited := postBalances[targetIdx] - preBalances[targetIdx]

	// Account index 0 is the fee payer, so when it shows a decrease
	// it wins this scan and the identified sender is a known signer.
	senderIdx := -1
	for i := range accountKeys {
		if i == targetIdx {
			continue
		}
		if postBalances[i] < preBalances[i] {
			senderIdx = i
			break
		}
	}
	if senderIdx < 0 {
		return nil
	}

	return &Transfer{
		Signature: signature,
		Sender:    accountKeys[senderIdx].String(),
		Lamports:  credited,
	}
}
