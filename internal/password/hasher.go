// Package password hashes and verifies account passwords.
package password

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPassword        = errors.New("password cannot be empty")
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	ErrInvalidHash          = errors.New("invalid hash format")
)

// Algorithm names accepted by NewHasher
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// Hasher hashes passwords and verifies them against stored hashes.
// Verify returns (false, nil) on mismatch and a non-nil error only when the
// stored hash cannot be checked at all.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// Multi hashes new passwords with one algorithm and verifies hashes produced
// by any of the known algorithms, picked by the encoded prefix.
type Multi struct {
	primary  Hasher
	bcrypt   *Bcrypt
	argon2id *Argon2id
}

// Ensure implementations satisfy Hasher
var (
	_ Hasher = (*Multi)(nil)
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Argon2id)(nil)
)

// NewHasher creates a Multi hasher that produces hashes with the named algorithm
func NewHasher(algorithm string, bcryptCost int) (*Multi, error) {
	b, err := NewBcrypt(bcryptCost)
	if err != nil {
		return nil, err
	}
	a := NewArgon2id()

	m := &Multi{bcrypt: b, argon2id: a}
	switch algorithm {
	case "", AlgorithmBcrypt:
		m.primary = b
	case AlgorithmArgon2id:
		m.primary = a
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
	return m, nil
}

// Hash hashes the password with the primary algorithm
func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify checks the password against a hash produced by any known algorithm
func (m *Multi) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return m.bcrypt.Verify(password, hash)
	case strings.HasPrefix(hash, "$argon2id$"):
		return m.argon2id.Verify(password, hash)
	default:
		return false, ErrUnsupportedAlgorithm
	}
}
