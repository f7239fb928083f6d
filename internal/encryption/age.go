package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"savekeep/internal/config"
	"savekeep/internal/keep"
)

// ErrAlreadyConfigured is returned by Setup when either key file exists.
var ErrAlreadyConfigured = errors.New("seal keys already exist")

// AgeSealer seals backups to an age X25519 recipient. The recipient is kept
// in plaintext at publicKeyPath so sealing never needs the passphrase. The
// identity at privateKeyPath is itself an age file sealed to the passphrase.
type AgeSealer struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ keep.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates an AgeSealer for the key paths in cfg.
func NewAgeSealer(cfg config.SealConfig) *AgeSealer {
	return &AgeSealer{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup creates the key pair. It never touches existing key files, since
// backups sealed to the old recipient could not be opened again. The private
// key is written first so a half-finished setup never looks configured.
func (s *AgeSealer) Setup(passphrase string) error {
	if exists(s.publicKeyPath) || exists(s.privateKeyPath) {
		return ErrAlreadyConfigured
	}
	if passphrase == "" {
		return errors.New("passphrase must not be empty")
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	lock, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("deriving passphrase key: %w", err)
	}

	var locked bytes.Buffer
	if err := seal(&locked, lock, bytes.NewBufferString(identity.String()+"\n")); err != nil {
		return fmt.Errorf("locking private key: %w", err)
	}
	if err := writeKey(s.privateKeyPath, locked.Bytes(), 0o600); err != nil {
		return err
	}
	return writeKey(s.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0o644)
}

// Seal writes r to w encrypted to the stored public key.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	data, err := os.ReadFile(s.publicKeyPath)
	if err != nil {
		return fmt.Errorf("reading public key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing public key %s: %w", s.publicKeyPath, err)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("public key file %s is empty", s.publicKeyPath)
	}
	return seal(w, recipients[0], r)
}

// Unlock opens the private key with passphrase. A wrong passphrase fails here,
// before any restore target is touched.
func (s *AgeSealer) Unlock(passphrase string) (keep.Unsealer, error) {
	locked, err := os.Open(s.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	defer locked.Close()

	key, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase key: %w", err)
	}
	var plain bytes.Buffer
	if err := unseal(&plain, key, locked); err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}

	identities, err := age.ParseIdentities(&plain)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, errors.New("private key file holds no identity")
	}
	return &AgeUnsealer{identity: identities[0]}, nil
}

// IsConfigured reports whether both key files exist.
func (s *AgeSealer) IsConfigured() bool {
	return exists(s.publicKeyPath) && exists(s.privateKeyPath)
}

// AgeUnsealer holds an unlocked age identity.
type AgeUnsealer struct {
	identity age.Identity
}

var _ keep.Unsealer = (*AgeUnsealer)(nil)

// Unseal writes the plaintext of the age file r to w.
func (u *AgeUnsealer) Unseal(r io.Reader, w io.Writer) error {
	return unseal(w, u.identity, r)
}

func seal(dst io.Writer, to age.Recipient, src io.Reader) error {
	w, err := age.Encrypt(dst, to)
	if err != nil {
		return fmt.Errorf("starting age stream: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("sealing data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing age stream: %w", err)
	}
	return nil
}

func unseal(dst io.Writer, with age.Identity, src io.Reader) error {
	r, err := age.Decrypt(src, with)
	if err != nil {
		return fmt.Errorf("opening age stream: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("unsealing data: %w", err)
	}
	return nil
}

// writeKey creates a key file, failing if one appeared since Setup checked.
func writeKey(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrAlreadyConfigured
		}
		return fmt.Errorf("creating key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing key file %s: %w", path, err)
	}
	return f.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
