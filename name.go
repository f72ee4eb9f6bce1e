package replslot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// NameMax is the maximum slot name length, including the terminator the
// on-disk record reserves for it. Must stay >= 32.
const NameMax = 64

var nameGrammar = regexp.MustCompile(`^[a-z0-9_?<!\-.]+$`)

// ValidateName enforces the slot-name grammar: non-empty, shorter than
// NameMax, and composed only of [a-z0-9_?<!\-.].
//
// Two name validators coexisted in the original source: this strict grammar
// validator, and a separate "dangerous character" allowlist used by exactly
// one helper that tolerated uppercase letters and spaces. This module
// unifies on the strict grammar everywhere a name is accepted, since
// divergent validators for the same conceptual name is a latent bug, not a
// feature: a name accepted by the lax helper but rejected here would wedge
// a caller between "created fine" and "can never be looked up again".
func ValidateName(name string) error {
	if len(name) == 0 {
		return newError(InvalidName, name, fmt.Errorf("slot name must not be empty"))
	}
	if len(name) >= NameMax {
		return newError(NameTooLong, name, fmt.Errorf("slot name must be shorter than %d bytes", NameMax))
	}
	if !nameGrammar.MatchString(name) {
		return newError(InvalidName, name, fmt.Errorf("slot name must match [a-z0-9_?<!\\-.]+"))
	}
	return nil
}

// validateNameLogged runs ValidateName and, when it fails, logs at the
// given level in addition to returning the error — used by entry points
// that want the failure visible in server logs even though the error is
// recoverable.
func validateNameLogged(ctx context.Context, name string, level slog.Level) error {
	if err := ValidateName(name); err != nil {
		slog.Log(ctx, level, "invalid slot name", "name", name, "err", err)
		return err
	}
	return nil
}
