package marketplace

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/db/repos"
)

// AssetAllowlist validates reward assets against a fixed set of
// acceptable asset identifiers.
type AssetAllowlist map[string]struct{}

// NewAssetAllowlist builds an allowlist from asset identifiers.
func NewAssetAllowlist(assets ...string) AssetAllowlist {
	allow := make(AssetAllowlist, len(assets))
	for _, asset := range assets {
		allow[asset] = struct{}{}
	}
	return allow
}

// Validate implements AssetValidator.
func (a AssetAllowlist) Validate(_ context.Context, asset string) error {
	if asset == "" {
		return fmt.Errorf("empty asset id")
	}
	if _, ok := a[asset]; !ok {
		return fmt.Errorf("asset %q not accepted", asset)
	}
	return nil
}

// StoredAttestations answers source verification from the verified-source
// table. It implements AttestationVerifier.
type StoredAttestations struct {
	repo *repos.AttestationRepository
}

// NewStoredAttestations creates an attestation verifier over the database.
func NewStoredAttestations(db *gorm.DB) *StoredAttestations {
	return &StoredAttestations{repo: repos.NewAttestationRepository(db)}
}

// IsSourceVerified reports whether the provider's attestation was accepted.
func (s *StoredAttestations) IsSourceVerified(ctx context.Context, source string) (bool, error) {
	return s.repo.Exists(ctx, source)
}

// Verify marks a provider's attestation as accepted.
func (s *StoredAttestations) Verify(ctx context.Context, source string) error {
	return s.repo.Add(ctx, source)
}

// Revoke withdraws a provider's accepted attestation.
func (s *StoredAttestations) Revoke(ctx context.Context, source string) error {
	return s.repo.Remove(ctx, source)
}
