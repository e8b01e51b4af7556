package services

import (
	"fmt"
	"testing"
)

func TestSignatureSetAddContains(t *testing.T) {
	set := NewSignatureSet(10)

	if set.Contains("sig1") {
		t.Error("empty set should not contain anything")
	}

	set.Add("sig1")
	if !set.Contains("sig1") {
		t.Error("expected sig1 to be present after Add")
	}
	if set.Len() != 1 {
		t.Errorf("expected length 1, got %d", set.Len())
	}

	// Adding the same signature twice must not grow the set.
	set.Add("sig1")
	if set.Len() != 1 {
		t.Errorf("duplicate Add changed length to %d", set.Len())
	}
}

func TestSignatureSetEviction(t *testing.T) {
	set := NewSignatureSet(3)

	for i := 0; i < 3; i++ {
		set.Add(fmt.Sprintf("sig%d", i))
	}
	if set.Len() != 3 {
		t.Fatalf("expected length 3, got %d", set.Len())
	}

	// The fourth entry evicts the oldest.
	set.Add("sig3")
	if set.Len() != 3 {
		t.Errorf("expected bounded length 3, got %d", set.Len())
	}
	if set.Contains("sig0") {
		t.Error("oldest signature should have been evicted")
	}
	for _, sig := range []string{"sig1", "sig2", "sig3"} {
		if !set.Contains(sig) {
			t.Errorf("expected %s to survive eviction", sig)
		}
	}
}

func TestSignatureSetEvictionOrder(t *testing.T) {
	set := NewSignatureSet(2)
	set.Add("a")
	set.Add("b")
	set.Add("c") // evicts a
	set.Add("d") // evicts b

	if set.Contains("a") || set.Contains("b") {
		t.Error("eviction should proceed in insertion order")
	}
	if !set.Contains("c") || !set.Contains("d") {
		t.Error("newest signatures must be retained")
	}
}
