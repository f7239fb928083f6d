package testutil

import (
	"savekeep/internal/encryption"
	"savekeep/internal/keep"
)

// NewTestSealer creates a deterministic sealer already set up with passphrase.
func NewTestSealer(passphrase string) keep.Sealer {
	s := encryption.NewTestSealer()
	s.Setup(passphrase)
	return s
}
