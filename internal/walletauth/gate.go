package walletauth

import (
	"context"
	"net/http"
	"time"

	"github.com/txindexd/txindexd/internal/apierror"
	"github.com/txindexd/txindexd/internal/kv"
	"github.com/txindexd/txindexd/internal/txlog"
)

// Config is the configured surface of the gate: header names, bypass and
// protected paths, accepted encodings, canonicalization rules, nonce TTL,
// and the KV key prefix.
type Config struct {
	Enabled             bool
	HeaderWalletAddress string
	HeaderWalletSig     string
	HeaderNonce         string
	NonceTTL            time.Duration
	BypassPaths         []string
	ProtectPrefixes     []string
	AcceptSigB58        bool
	AcceptSigB64        bool
	CanonicalizeMethod  string
	CanonicalizePath    string
	KVKeyPrefix         string
}

// Gate verifies Ed25519 wallet signatures over one-time nonces. It is
// stateless; all nonce state lives in the KV store.
type Gate struct {
	cfg Config
	kv  *kv.Store
}

// New constructs a Gate.
func New(cfg Config, store *kv.Store) *Gate {
	return &Gate{cfg: cfg, kv: store}
}

func (g *Gate) key(address string) string {
	return g.cfg.KVKeyPrefix + ":" + address
}

// NonceResponse is the body of a successful nonce challenge.
type NonceResponse struct {
	Nonce   string `json:"nonce"`
	TTLSecs int    `json:"ttl_secs"`
}

// IssueNonce validates walletAddress and stores a freshly generated nonce
// bound to it, overwriting any prior live binding for the same wallet.
func (g *Gate) IssueNonce(ctx context.Context, walletAddress string) (NonceResponse, *apierror.Error) {
	if !ValidAddressLength(walletAddress) {
		return NonceResponse{}, apierror.BadRequest("invalid wallet_address length")
	}
	if _, err := DecodePubkeyB58(walletAddress); err != nil {
		return NonceResponse{}, apierror.BadRequest("wallet_address is not valid base58/32 bytes")
	}

	nonce, err := GenerateNonce()
	if err != nil {
		txlog.AuthLog.Errorf("generating nonce: %v", err)
		return NonceResponse{}, apierror.Internal("nonce_generation_failed")
	}

	if err := g.kv.SetEx(ctx, g.key(walletAddress), nonce, g.cfg.NonceTTL); err != nil {
		txlog.AuthLog.Errorf("storing nonce for %s: %v", walletAddress, err)
		return NonceResponse{}, apierror.Unavailable("kv_unavailable")
	}

	return NonceResponse{Nonce: nonce, TTLSecs: int(g.cfg.NonceTTL / time.Second)}, nil
}

// Headers is the set of headers the gate requires on a protected request.
type Headers struct {
	WalletAddress string
	Signature     string
	Nonce         string
}

func (g *Gate) isBypassed(path string) bool {
	for _, p := range g.cfg.BypassPaths {
		if p == path {
			return true
		}
	}
	return false
}

// IsProtected reports whether path requires authentication: it matches a
// protect prefix and is not explicitly bypassed.
func (g *Gate) IsProtected(path string) bool {
	if !g.cfg.Enabled {
		return false
	}
	if g.isBypassed(path) {
		return false
	}
	for _, prefix := range g.cfg.ProtectPrefixes {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// ExtractHeaders reads the three auth headers off req and reports which,
// if any, are missing.
func (g *Gate) ExtractHeaders(req *http.Request) (Headers, []string) {
	h := Headers{
		WalletAddress: req.Header.Get(g.cfg.HeaderWalletAddress),
		Signature:     req.Header.Get(g.cfg.HeaderWalletSig),
		Nonce:         req.Header.Get(g.cfg.HeaderNonce),
	}

	var missing []string
	if h.WalletAddress == "" {
		missing = append(missing, g.cfg.HeaderWalletAddress)
	}
	if h.Signature == "" {
		missing = append(missing, g.cfg.HeaderWalletSig)
	}
	if h.Nonce == "" {
		missing = append(missing, g.cfg.HeaderNonce)
	}
	return h, missing
}

// Verify performs the full protocol: fetch the stored nonce, compare,
// decode address and signature, build the signing string, verify Ed25519,
// and on success delete the nonce binding (one-time use).
func (g *Gate) Verify(ctx context.Context, h Headers, method, pathWithQuery string) *apierror.Error {
	stored, ok, err := g.kv.Get(ctx, g.key(h.WalletAddress))
	if err != nil {
		txlog.AuthLog.Errorf("fetching nonce for %s: %v", h.WalletAddress, err)
		return apierror.Internal("verification_error")
	}
	if !ok {
		return apierror.Unauthorized("nonce_missing")
	}
	if stored != h.Nonce {
		return apierror.Unauthorized("nonce_mismatch")
	}

	pubkey, err := DecodePubkeyB58(h.WalletAddress)
	if err != nil {
		return apierror.BadRequest("invalid wallet_address")
	}

	sigBytes, err := DecodeSignature(h.Signature, g.cfg.AcceptSigB58, g.cfg.AcceptSigB64)
	if err != nil {
		return apierror.BadRequest("invalid signature encoding")
	}

	signingString := BuildSigningString(method, pathWithQuery, h.Nonce, g.cfg.CanonicalizeMethod, g.cfg.CanonicalizePath)

	if !VerifyEd25519(pubkey, []byte(signingString), sigBytes) {
		return apierror.Unauthorized("invalid_signature")
	}

	if err := g.kv.Del(ctx, g.key(h.WalletAddress)); err != nil {
		txlog.AuthLog.Errorf("deleting nonce for %s: %v", h.WalletAddress, err)
	}

	return nil
}
