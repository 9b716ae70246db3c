// internal/utils/identifier.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var rolePrefixes = map[string]string{
	"master_admin": "MA",
	"super_admin":  "SA",
	"admin":        "ADM",
	"dealer":       "DLR",
	"marketer":     "DSR",
}

// GenerateUniqueID builds a human-readable account identifier like DSR004172
// from a role name. Uniqueness is enforced by the database index; callers
// retry on conflict.
func GenerateUniqueID(role string) (string, error) {
	prefix, ok := rolePrefixes[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate identifier: %w", err)
	}

	return fmt.Sprintf("%s%06d", prefix, n.Int64()), nil
}
