package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/kuitang/yanote/internal/obs"
)

// Password errors
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNumeric  = errors.New("password cannot be entirely numeric")
)

// MinPasswordLength is the shortest accepted password, in runes.
const MinPasswordLength = 8

// Argon2id parameters (OWASP second recommendation: m=19456, t=2, p=1).
// Parameters are embedded in each hash string, so hashes made with other
// settings still verify.
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encodedHash string) bool
}

// Argon2Hasher is the production PasswordHasher.
type Argon2Hasher struct{}

func (Argon2Hasher) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

func (Argon2Hasher) VerifyPassword(password, encodedHash string) bool {
	return VerifyPassword(password, encodedHash)
}

// FakeInsecureHasher stores passwords as "$fake$<plaintext>". Tests only.
type FakeInsecureHasher struct{}

func (FakeInsecureHasher) HashPassword(password string) (string, error) {
	return "$fake$" + password, nil
}

func (FakeInsecureHasher) VerifyPassword(password, encodedHash string) bool {
	stored, ok := strings.CutPrefix(encodedHash, "$fake$")
	return ok && stored == password
}

// ValidatePasswordStrength checks the minimum password requirements: at least
// MinPasswordLength runes and not only digits.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return nil
		}
	}
	return ErrPasswordNumeric
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	start := time.Now()
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	obs.Pkg("auth").Debug("argon2_hash", "memory_kib", argon2Memory, "time", argon2Time, "threads", argon2Threads, "duration_ms", time.Since(start).Milliseconds())

	// Encode as: $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads, encodedSalt, encodedHash), nil
}

// VerifyPassword checks if a password matches an encoded Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}

	saltBytes, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hashBytes, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	hashLen := len(hashBytes)
	if hashLen <= 0 || hashLen > argon2KeyLen*2 {
		return false
	}

	computed := argon2.IDKey([]byte(password), saltBytes, iterations, memory, threads, uint32(hashLen))
	return subtle.ConstantTimeCompare(hashBytes, computed) == 1
}
