// Package rewards implements a ledger-backed reward manager. Locked
// rewards live on a dedicated escrow account until they are paid out to
// providers and matchers.
package rewards

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/checked"
	"github.com/taskmesh/marketplace/internal/db/repos"
	"github.com/taskmesh/marketplace/internal/marketplace"
)

// EscrowAccount holds rewards between locking and payout.
const EscrowAccount = "escrow"

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the
	// source account's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOverflow is returned when a transfer would overflow the
	// destination account's balance.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Manager moves rewards between consumer accounts, the escrow account
// and payees. It implements marketplace.RewardManager.
type Manager struct {
	db     *gorm.DB
	ledger *repos.LedgerRepository
}

// NewManager creates a ledger-backed reward manager.
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db, ledger: repos.NewLedgerRepository(db)}
}

// Deposit credits an account. Used to fund consumer accounts.
func (m *Manager) Deposit(ctx context.Context, account string, reward marketplace.Reward) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := m.ledger.WithTx(tx)

		row, err := ledger.Get(ctx, account, reward.Asset)
		if err != nil {
			return err
		}
		balance, ok := checked.AddU64(row.Balance, reward.Amount)
		if !ok {
			return ErrBalanceOverflow
		}
		row.Balance = balance
		return ledger.Save(ctx, row)
	})
}

// Balance returns an account's balance for one asset.
func (m *Manager) Balance(ctx context.Context, account, asset string) (uint64, error) {
	row, err := m.ledger.Get(ctx, account, asset)
	if err != nil {
		return 0, err
	}
	return row.Balance, nil
}

// LockReward moves a job's total reward from the payer into escrow.
func (m *Manager) LockReward(ctx context.Context, reward marketplace.Reward, payer string) error {
	return m.transfer(ctx, payer, EscrowAccount, reward)
}

// PayReward pays a provider's execution fee out of escrow.
func (m *Manager) PayReward(ctx context.Context, reward marketplace.Reward, payee string) error {
	return m.transfer(ctx, EscrowAccount, payee, reward)
}

// PayMatcherReward pays the unspent part of a matched job's reward to
// the matcher out of escrow.
func (m *Manager) PayMatcherReward(ctx context.Context, reward marketplace.Reward, payee string) error {
	return m.transfer(ctx, EscrowAccount, payee, reward)
}

func (m *Manager) transfer(ctx context.Context, from, to string, reward marketplace.Reward) error {
	if reward.Amount == 0 {
		return nil
	}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := m.ledger.WithTx(tx)

		src, err := ledger.Get(ctx, from, reward.Asset)
		if err != nil {
			return err
		}
		balance, ok := checked.SubU64(src.Balance, reward.Amount)
		if !ok {
			return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientBalance,
				from, src.Balance, reward.Asset, reward.Amount)
		}
		src.Balance = balance
		if err := ledger.Save(ctx, src); err != nil {
			return err
		}

		dst, err := ledger.Get(ctx, to, reward.Asset)
		if err != nil {
			return err
		}
		balance, ok = checked.AddU64(dst.Balance, reward.Amount)
		if !ok {
			return ErrBalanceOverflow
		}
		dst.Balance = balance
		return ledger.Save(ctx, dst)
	})
	if err != nil {
		return fmt.Errorf("failed to transfer %d %s from %s to %s: %w",
			reward.Amount, reward.Asset, from, to, err)
	}
	return nil
}
