// Package service provides business logic implementations.
// Property-based tests for the withdrawal workflow.
package service

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// withdrawState tracks the simulated account through the workflow.
type withdrawState struct {
	Balance       int64
	WalletAddress string

	PendingAmount int64
	Resolved      bool
	Refunded      bool
}

// simulateCreateRequest mirrors WithdrawService.CreateRequest: optimistic
// debit of the requested amount behind the wallet, minimum and coverage
// checks.
func simulateCreateRequest(s *withdrawState, amount, minBalance int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if s.WalletAddress == "" {
		return ErrWithdrawNoWallet
	}
	if s.Balance < minBalance {
		return ErrWithdrawBelowMinimum
	}
	if amount > s.Balance {
		return ErrInsufficientBalance
	}
	s.PendingAmount = amount
	s.Balance -= amount
	return nil
}

// simulateResolve mirrors WithdrawService.resolve: the guarded status
// transition means only the first resolution takes effect; approval keeps
// the debit, rejection refunds it.
func simulateResolve(s *withdrawState, approve bool) error {
	if s.PendingAmount == 0 || s.Resolved {
		return ErrWithdrawNotPending
	}
	s.Resolved = true
	if !approve {
		s.Balance += s.PendingAmount
		s.Refunded = true
	}
	return nil
}

// TestWithdrawDebitsRequestedAmount checks that an accepted request debits
// exactly the requested amount, e.g. withdrawing 100 of a 1500-coin balance
// leaves 1400.
func TestWithdrawDebitsRequestedAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		minBalance := rapid.Int64Range(1, 10000).Draw(t, "minBalance")
		balance := rapid.Int64Range(0, 1000000).Draw(t, "balance")
		amount := rapid.Int64Range(1, 1000000).Draw(t, "amount")

		s := &withdrawState{Balance: balance, WalletAddress: "UQAbc123def456ghi"}
		err := simulateCreateRequest(s, amount, minBalance)

		switch {
		case balance < minBalance:
			if !errors.Is(err, ErrWithdrawBelowMinimum) {
				t.Fatalf("balance %d under minimum %d must be refused, got %v", balance, minBalance, err)
			}
		case amount > balance:
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Fatalf("amount %d over balance %d must be refused, got %v", amount, balance, err)
			}
		default:
			if err != nil {
				t.Fatalf("eligible request refused: %v", err)
			}
			if s.PendingAmount != amount || s.Balance != balance-amount {
				t.Fatalf("debit mismatch: pending=%d balance=%d, want pending=%d balance=%d",
					s.PendingAmount, s.Balance, amount, balance-amount)
			}
			return
		}
		if s.Balance != balance {
			t.Fatal("refused request must not touch the balance")
		}
	})
}

// TestWithdrawRejectsNonPositiveAmount checks that zero and negative
// amounts are refused before any other check runs.
func TestWithdrawRejectsNonPositiveAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 1000000).Draw(t, "balance")
		amount := rapid.Int64Range(-1000000, 0).Draw(t, "amount")

		s := &withdrawState{Balance: balance, WalletAddress: "UQAbc123def456ghi"}
		if err := simulateCreateRequest(s, amount, 1001); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("non-positive amount %d must be refused, got %v", amount, err)
		}
		if s.Balance != balance {
			t.Fatal("refused request must not touch the balance")
		}
	})
}

// TestWithdrawRequiresWallet checks that no request is accepted without a
// payout address, regardless of balance.
func TestWithdrawRequiresWallet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 1000000).Draw(t, "balance")
		amount := rapid.Int64Range(1, 1000000).Draw(t, "amount")

		s := &withdrawState{Balance: balance}
		err := simulateCreateRequest(s, amount, 1001)

		if !errors.Is(err, ErrWithdrawNoWallet) {
			t.Fatalf("request without wallet must be refused, got %v", err)
		}
		if s.Balance != balance {
			t.Fatal("refused request must not touch the balance")
		}
	})
}

// TestWithdrawResolutionConservation checks the net effect of the whole
// workflow: approval ends with the balance reduced by exactly the pending
// amount, rejection ends with the original balance restored.
func TestWithdrawResolutionConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		minBalance := rapid.Int64Range(1, 10000).Draw(t, "minBalance")
		balance := rapid.Int64Range(minBalance, 1000000).Draw(t, "balance")
		amount := rapid.Int64Range(1, balance).Draw(t, "amount")
		approve := rapid.Bool().Draw(t, "approve")

		s := &withdrawState{Balance: balance, WalletAddress: "UQAbc123def456ghi"}
		if err := simulateCreateRequest(s, amount, minBalance); err != nil {
			t.Fatalf("eligible request refused: %v", err)
		}
		if err := simulateResolve(s, approve); err != nil {
			t.Fatalf("pending request failed to resolve: %v", err)
		}

		if approve {
			if s.Balance != balance-amount {
				t.Fatalf("approved withdrawal must keep the debit: got %d, want %d", s.Balance, balance-amount)
			}
			if s.Refunded {
				t.Fatal("approval must not refund")
			}
		} else {
			if s.Balance != balance {
				t.Fatalf("rejected withdrawal must restore the balance: got %d, want %d", s.Balance, balance)
			}
			if !s.Refunded {
				t.Fatal("rejection must record a refund")
			}
		}
	})
}

// TestWithdrawResolveIsOneShot checks that a resolved request cannot be
// resolved again, in particular that a double rejection refunds only once.
func TestWithdrawResolveIsOneShot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(1001, 1000000).Draw(t, "balance")
		amount := rapid.Int64Range(1, balance).Draw(t, "amount")
		first := rapid.Bool().Draw(t, "first")
		second := rapid.Bool().Draw(t, "second")

		s := &withdrawState{Balance: balance, WalletAddress: "UQAbc123def456ghi"}
		if err := simulateCreateRequest(s, amount, 1001); err != nil {
			t.Fatalf("eligible request refused: %v", err)
		}
		if err := simulateResolve(s, first); err != nil {
			t.Fatalf("first resolve failed: %v", err)
		}

		balanceAfterFirst := s.Balance
		if err := simulateResolve(s, second); !errors.Is(err, ErrWithdrawNotPending) {
			t.Fatalf("second resolve must be refused, got %v", err)
		}
		if s.Balance != balanceAfterFirst {
			t.Fatal("second resolve must not move the balance")
		}
	})
}
