package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordSaltBytes  = 16
	passwordKeyBytes   = 32
	passwordIterations = 310000
)

// HashPassword deriva una clave PBKDF2-HMAC-SHA256 con sal aleatoria y
// devuelve "hex(sal):hex(clave)".
func HashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := derivePasswordKey(password, salt)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword nunca falla por entradas mal formadas: devuelve false.
func VerifyPassword(password, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(parts[1])
	if err != nil || len(expected) != passwordKeyBytes {
		return false
	}
	key := derivePasswordKey(password, salt)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func derivePasswordKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, passwordIterations, passwordKeyBytes, sha256.New)
}
