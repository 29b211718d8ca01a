package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"math/big"

	"ppchat/tools/errs"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters per spec §4.2: t=2 time cost, m=65536 KiB memory,
// p=1 thread, 32-byte output. Grounded on the original HashPassword/
// VerifyPassword (original_source/GOserver/DB_AWS_handler.go), which uses
// the same family of constants; the salt alphabet below is taken verbatim
// from that implementation's validChars.
const (
	argonTime    = 2
	argonMemory  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 32
)

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789@#&?!~^-$%*+"

// PasswordHasher is the §4.2 contract: salted, memory-hard hashing and
// constant-time verification. The algorithm itself is an external
// collaborator per spec §1 ("specified by contract, not by algorithm
// tuning"); Argon2Hasher is the one concrete implementation this repo
// ships.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) (bool, error)
}

// Argon2Hasher implements PasswordHasher with Argon2id.
type Argon2Hasher struct{}

func NewArgon2Hasher() Argon2Hasher { return Argon2Hasher{} }

func generateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	for i := range salt {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(saltAlphabet))))
		if err != nil {
			return nil, errs.WrapMsg(err, "generate salt")
		}
		salt[i] = saltAlphabet[n.Int64()]
	}
	return salt, nil
}

// Hash returns salt||hash, base64-encoded as a single opaque token.
func (Argon2Hasher) Hash(password string) (string, error) {
	salt, err := generateSalt()
	if err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	buf := make([]byte, 0, len(salt)+len(hash))
	buf = append(buf, salt...)
	buf = append(buf, hash...)
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

// Verify splits stored back into salt and hash using the fixed saltLen/
// argonKeyLen widths and recomputes, comparing in constant time.
func (Argon2Hasher) Verify(password, stored string) (bool, error) {
	buf, err := base64.RawStdEncoding.DecodeString(stored)
	if err != nil {
		return false, errs.WrapMsg(err, "decode stored hash")
	}
	if len(buf) != saltLen+argonKeyLen {
		return false, errs.NewCodeError(errs.CodeValidation, "stored hash has unexpected length")
	}
	salt, want := buf[:saltLen], buf[saltLen:]
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
