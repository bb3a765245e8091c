package walletauth

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func TestDecodePubkeyB58RoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	encoded := base58.Encode(pub)
	decoded, err := DecodePubkeyB58(encoded)
	require.NoError(t, err)
	require.Equal(t, ed25519.PublicKey(pub), decoded)
}

func TestDecodePubkeyB58RejectsWrongLength(t *testing.T) {
	_, err := DecodePubkeyB58(base58.Encode([]byte("too-short")))
	require.Error(t, err)
}

func TestDecodeSignaturePrefersBase58WhenBothEnabled(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, []byte("message"))

	encoded := base58.Encode(sig)
	decoded, err := DecodeSignature(encoded, true, true)
	require.NoError(t, err)
	require.Equal(t, sig, decoded)
}

func TestDecodeSignatureRejectsWhenNoEncodingEnabled(t *testing.T) {
	_, err := DecodeSignature("anything", false, false)
	require.Error(t, err)
}

func TestVerifyEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signingString := BuildSigningString("POST", "/api/transactions", "nonce123", "upper", "as-is")
	sig := ed25519.Sign(priv, []byte(signingString))

	require.True(t, VerifyEd25519(pub, []byte(signingString), sig))
}

func TestVerifyEd25519RejectsTamperedMessage(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	sig := ed25519.Sign(priv, []byte("GET\n/path\nnonce"))
	require.False(t, VerifyEd25519(pub, []byte("GET\n/path\nother-nonce"), sig))
}

func TestBuildSigningStringCanonicalizesMethod(t *testing.T) {
	s := BuildSigningString("get", "/path", "nonce", "upper", "as-is")
	require.Equal(t, "GET\n/path\nnonce", s)
}

func TestGenerateNonceProducesUniqueValues(t *testing.T) {
	a, err := GenerateNonce()
	require.NoError(t, err)
	b, err := GenerateNonce()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
