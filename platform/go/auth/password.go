package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to every password set by master or tenant actions.
const MinPasswordLength = 6

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash (over 72 bytes).
var ErrPasswordTooLong = errors.New("password too long")

// Hasher hashes and verifies tenant admin passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher; cost 0 selects bcrypt.DefaultCost.
func NewHasher(cost int) Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h Hasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHashes sync.Map // cost -> []byte

// dummyHash returns a hash of a fixed password at the hasher's cost, built once per cost.
func (h Hasher) dummyHash() []byte {
	if v, ok := dummyHashes.Load(h.cost); ok {
		return v.([]byte)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("gacha-dummy-password"), h.cost)
	if err != nil {
		panic(err)
	}
	v, _ := dummyHashes.LoadOrStore(h.cost, hash)
	return v.([]byte)
}

// CompareDummy spends the same time as a real comparison at the configured cost; used when
// the user or tenant does not exist.
func (h Hasher) CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash(), []byte(password))
}
