// Package invite issues join tokens for channels. A code is two
// independent random base-36 strings of length 13 concatenated, well over
// 60 bits of entropy. The in-process uniqueness check is best effort only;
// the storage layer's uniqueness constraint on invite codes is the actual
// correctness guarantee for the check-then-insert race.
package invite

import (
	"context"
	"fmt"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/utils"
)

const (
	segmentLength = 13
	maxAttempts   = 5
)

// ExistsFunc reports whether a code is already held by an active channel.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Issuer generates collision-free invite codes.
type Issuer struct {
	exists ExistsFunc
}

func NewIssuer(exists ExistsFunc) *Issuer {
	return &Issuer{exists: exists}
}

// Generate returns a single candidate code without any uniqueness check.
func Generate() string {
	return utils.RandomBase36(segmentLength) + utils.RandomBase36(segmentLength)
}

// Issue returns a code not currently in use. It regenerates on collision
// up to a bounded number of attempts, then fails with Conflict.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := Generate()
		inUse, err := i.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not generate a unique invite code", apperr.ErrConflict)
}
