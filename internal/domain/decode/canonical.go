package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Byte lengths that carry meaning.
const (
	IdentifierLen = 32 // solana.PublicKey
	CredentialLen = 64 // solana.Signature

	// CredentialKey is the only field name under which a 64-byte array is
	// read as a credential.
	CredentialKey = "signature"
)

// Encoder renders raw bytes as canonical text.
type Encoder func([]byte) string

// EncodeIdentifier renders a 32-byte public key in base-58.
func EncodeIdentifier(b []byte) string {
	return solana.PublicKeyFromBytes(b).String()
}

// EncodeCredential renders a 64-byte signature in base-58.
func EncodeCredential(b []byte) string {
	return base58.Encode(b)
}

// DecodeIdentifier parses the canonical form of an identifier back to its 32 bytes.
func DecodeIdentifier(s string) ([]byte, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return nil, fmt.Errorf("decode identifier: %w", err)
	}
	return pk[:], nil
}

// DecodeCredential parses the canonical form of a credential back to its 64 bytes.
func DecodeCredential(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	if len(b) != CredentialLen {
		return nil, fmt.Errorf("%w: credential has %d bytes", ErrInvalidLength, len(b))
	}
	return b, nil
}

// JoinDecimal renders b as "1,2,3", the degraded form used when encoding fails.
func JoinDecimal(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 4)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(c)))
	}
	return sb.String()
}

// encodeOrJoin runs enc and degrades to JoinDecimal if enc panics or yields
// nothing.
func encodeOrJoin(enc Encoder, b []byte) (s string, fellBack bool) {
	defer func() {
		if r := recover(); r != nil {
			s, fellBack = JoinDecimal(b), true
		}
	}()
	s = enc(b)
	if s == "" {
		return JoinDecimal(b), true
	}
	return s, false
}
