package password

import "golang.org/x/crypto/bcrypt"

// Hasher performs one-way password hashing backed by bcrypt. Each hash
// carries its own random salt, so hashing the same plaintext twice yields
// different strings that both verify.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost; a cost of zero
// selects the library default.
func NewHasher(cost int) Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext produced the given hash. A malformed
// hash is treated as a mismatch.
func (h Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
