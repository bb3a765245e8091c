// Package walletauth implements the wallet authentication protocol:
// challenge/response over Ed25519 signatures with one-time nonces backed
// by the KV store.
package walletauth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidLength is returned by the decode helpers when the decoded
// byte slice does not match the expected length.
var ErrInvalidLength = errors.New("invalid decoded length")

// DecodePubkeyB58 decodes a base58 wallet address to a 32-byte Ed25519
// public key.
func DecodePubkeyB58(addr string) (ed25519.PublicKey, error) {
	b, err := base58.Decode(addr)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, ErrInvalidLength
	}
	return ed25519.PublicKey(b), nil
}

// DecodeSigB58 decodes a base58 signature to 64 raw bytes.
func DecodeSigB58(sig string) ([]byte, error) {
	b, err := base58.Decode(sig)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.SignatureSize {
		return nil, ErrInvalidLength
	}
	return b, nil
}

// DecodeSigB64 decodes a standard-base64 signature to 64 raw bytes.
func DecodeSigB64(sig string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.SignatureSize {
		return nil, ErrInvalidLength
	}
	return b, nil
}

// DecodeSignature decodes sig trying base58 first then base64, according
// to which encodings are enabled; base58 takes precedence when both are
// enabled.
func DecodeSignature(sig string, acceptB58, acceptB64 bool) ([]byte, error) {
	if acceptB58 {
		if b, err := DecodeSigB58(sig); err == nil {
			return b, nil
		} else if !acceptB64 {
			return nil, err
		}
	}
	if acceptB64 {
		return DecodeSigB64(sig)
	}
	return nil, errors.New("no signature encoding enabled")
}

// BuildSigningString composes the canonical string a client must sign:
// canon_method + "\n" + canon_path + "\n" + nonce.
func BuildSigningString(method, pathWithQuery, nonce, canonMethod, canonPath string) string {
	m := method
	switch canonMethod {
	case "upper":
		m = strings.ToUpper(method)
	case "lower":
		m = strings.ToLower(method)
	}

	p := pathWithQuery
	if canonPath == "lower" {
		p = strings.ToLower(pathWithQuery)
	}

	return m + "\n" + p + "\n" + nonce
}

// VerifyEd25519 reports whether sig is a valid Ed25519 signature of
// message under pubkey.
func VerifyEd25519(pubkey ed25519.PublicKey, message, sig []byte) bool {
	if len(pubkey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubkey, message, sig)
}

// GenerateNonce returns a fresh 16-byte random nonce, base58-encoded.
func GenerateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// ValidAddressLength reports whether addr's length falls in the accepted
// base58 wallet-address range.
func ValidAddressLength(addr string) bool {
	return len(addr) >= 32 && len(addr) <= 44
}
