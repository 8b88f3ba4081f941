package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

var ErrSealed = errors.New("stored config is encrypted and no passphrase is configured")

// sealer encrypts the provider config at rest. The zero value passes data through.
type sealer struct {
	passphrase string
	workFactor int
}

func (s sealer) enabled() bool { return s.passphrase != "" }

func (s sealer) seal(plain []byte) (string, error) {
	if !s.enabled() {
		return string(plain), nil
	}
	recipient, err := age.NewScryptRecipient(s.passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to create scrypt recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return "", fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return "", fmt.Errorf("failed to encrypt config: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("failed to close armor: %w", err)
	}
	return buf.String(), nil
}

// open accepts both sealed and plaintext records so enabling a passphrase does not strand
// an existing config; the next write seals it.
func (s sealer) open(stored string) ([]byte, error) {
	if !strings.HasPrefix(strings.TrimSpace(stored), armor.Header) {
		return []byte(stored), nil
	}
	if !s.enabled() {
		return nil, ErrSealed
	}
	identity, err := age.NewScryptIdentity(s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrypt identity: %w", err)
	}
	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(stored))), identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt config: %w", err)
	}
	return io.ReadAll(r)
}
