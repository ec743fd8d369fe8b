package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"

	"wifi-loyalty-portal/internal/domain/model"
)

// codeEntropyBytes gives 64 random bits per code.
const codeEntropyBytes = 8

// GenerateCode returns the type prefix followed by 16 uppercase hex characters.
// Uniqueness is enforced by the store, not here.
func GenerateCode(t model.VoucherType) (string, error) {
	return generateCodeFrom(rand.Reader, t)
}

func generateCodeFrom(r io.Reader, t model.VoucherType) (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return t.Prefix() + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// CodeGenerator lets tests substitute a deterministic source.
type CodeGenerator func(t model.VoucherType) (string, error)
