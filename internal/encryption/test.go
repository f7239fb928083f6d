package encryption

import (
	"bytes"
	"fmt"
	"io"

	"savekeep/internal/keep"
)

// testHeader is prepended to data by TestSealer to make sealed output
// clearly different from plaintext while remaining deterministic and reversible.
var testHeader = []byte("SKSEAL\x00\x00")

// TestSealer is a simple, deterministic sealer for testing.
// It prepends a fixed 8-byte header when sealing and strips it when
// unsealing. The passphrase given to Setup is the only one Unlock accepts.
type TestSealer struct {
	passphrase string
	configured bool
}

var _ keep.Sealer = (*TestSealer)(nil)

// NewTestSealer creates a new TestSealer.
func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (s *TestSealer) Setup(passphrase string) error {
	s.passphrase = passphrase
	s.configured = true
	return nil
}

func (s *TestSealer) Seal(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (s *TestSealer) Unlock(passphrase string) (keep.Unsealer, error) {
	if s.configured && passphrase != s.passphrase {
		return nil, fmt.Errorf("incorrect passphrase")
	}
	return &TestUnsealer{}, nil
}

func (s *TestSealer) IsConfigured() bool {
	return s.configured
}

// TestUnsealer strips the test header added by TestSealer.
type TestUnsealer struct{}

var _ keep.Unsealer = (*TestUnsealer)(nil)

func (u *TestUnsealer) Unseal(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test seal header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
