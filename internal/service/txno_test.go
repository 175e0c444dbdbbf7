package service

import (
	"strings"
	"testing"

	"github.com/minimall-next/internal/constants"
)

func TestAllocateTransactionNoShape(t *testing.T) {
	txNo := AllocateTransactionNo(42)
	if !strings.HasPrefix(txNo, constants.TransactionNoPrefix) {
		t.Fatalf("expected prefix %s, got %s", constants.TransactionNoPrefix, txNo)
	}
	if !strings.HasPrefix(strings.TrimPrefix(txNo, constants.TransactionNoPrefix), "42") {
		t.Fatalf("expected order id after prefix: %s", txNo)
	}
	if len(txNo) > maxTransactionNoLength {
		t.Fatalf("transaction no too long: %d", len(txNo))
	}
}

func TestAllocateTransactionNoUniquePerCall(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		txNo := AllocateTransactionNo(42)
		if seen[txNo] {
			t.Fatalf("duplicate transaction no: %s", txNo)
		}
		seen[txNo] = true
	}
}

func TestAllocateTransactionNoKeepsRandomSuffixForHugeOrderID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		txNo := AllocateTransactionNo(12345678901234)
		if len(txNo) > maxTransactionNoLength {
			t.Fatalf("transaction no too long: %d", len(txNo))
		}
		if seen[txNo] {
			t.Fatalf("duplicate transaction no: %s", txNo)
		}
		seen[txNo] = true
	}
}
