package keep

import "io"

// Sealer encrypts backups for safekeeping.
// Sealing uses the public key only, so no passphrase is needed to seal.
// Unsealing requires the passphrase that protects the private key.
type Sealer interface {
	// Setup performs one-time key generation. Called during `savekeep seal init`.
	// Generates a key pair, stores the public key in plaintext, and encrypts
	// the private key with the provided passphrase.
	Setup(passphrase string) error

	// Seal encrypts data read from r and writes ciphertext to w.
	Seal(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns an
	// Unsealer. Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (Unsealer, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// Unsealer holds an unlocked private key in memory for one restore.
type Unsealer interface {
	// Unseal decrypts data read from r and writes plaintext to w.
	Unseal(r io.Reader, w io.Writer) error
}
