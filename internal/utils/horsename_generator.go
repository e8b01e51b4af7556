package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var prefixes = []string{
	"Midnight", "Thunder", "Golden", "Silver", "Crimson",
	"Northern", "Lucky", "Royal", "Iron", "Velvet",
	"Stormy", "Blazing", "Silent", "Wild", "Noble",
	"Dusty", "Copper", "Shadow", "Frost", "Ember",
}

var suffixes = []string{
	"Runner", "Dancer", "Arrow", "Spirit", "Comet",
	"Fury", "Whisper", "Baron", "Duchess", "Gale",
	"Rocket", "Legend", "Mirage", "Tempest", "Glory",
	"Strider", "Bandit", "Monarch", "Echo", "Flash",
}

// GenerateHorseName creates a random horse name in the format
// "Prefix Suffix"
func GenerateHorseName() (string, error) {
	prefixIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(prefixes))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random prefix: %w", err)
	}

	suffixIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(suffixes))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	return fmt.Sprintf("%s %s", prefixes[prefixIdx.Int64()], suffixes[suffixIdx.Int64()]), nil
}
