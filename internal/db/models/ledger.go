package models

import "gorm.io/gorm"

// LedgerAccount holds one account's balance in one asset. The reward
// manager moves amounts between consumer accounts, the escrow account and
// provider/matcher accounts; balances never go negative.
type LedgerAccount struct {
	gorm.Model
	Account string `json:"account" gorm:"uniqueIndex:idx_ledger_account_asset;not null"`
	Asset   string `json:"asset" gorm:"uniqueIndex:idx_ledger_account_asset;not null"`
	Balance uint64 `json:"balance"`
}
