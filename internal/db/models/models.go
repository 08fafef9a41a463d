// Package models defines the database models for the marketplace store.
package models

const (
	// MaxPricingVariants is the maximum number of pricing variants a
	// single advertisement may carry.
	MaxPricingVariants = 100
	// MaxSlots is the maximum number of slots a job registration may
	// request.
	MaxSlots = 64
	// MaxAllowedAccounts bounds the allowed-consumer and allowed-source
	// whitelists.
	MaxAllowedAccounts = 1000
)

// AccountList is a JSON-serialized list of account identifiers. A nil
// list means "no restriction"; an empty list rejects everyone.
type AccountList []string

// Contains reports whether the list permits the given account. A nil
// list permits all accounts.
func (l AccountList) Contains(account string) bool {
	if l == nil {
		return true
	}
	for _, a := range l {
		if a == account {
			return true
		}
	}
	return false
}
