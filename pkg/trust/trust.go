// Package trust implements the narrow trust-anchor/cert-chain verification
// spec.md's Non-goals permit: "trust-list policy decisions beyond verifying
// that a signing certificate chains and has not been explicitly revoked". It
// builds an x509 chain against a caller-supplied root bundle and optionally
// checks an OCSP responder; it does not implement a named trust-store format
// or any revocation-list policy engine beyond that.
package trust

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/util/xcache"
	"github.com/wuxler/c2pa/pkg/util/xhttp"
	"github.com/wuxler/c2pa/pkg/util/xio"
	"github.com/wuxler/c2pa/pkg/xlog"
)

// Result is the outcome of verifying one signing certificate against a
// Store: whether it chains to a trusted root, whether OCSP revocation was
// checked and what it found.
type Result struct {
	Chains      [][]*x509.Certificate
	Trusted     bool
	OCSPChecked bool
	Revoked     bool
}

// Store holds the set of root certificates a signing credential must chain
// to, an optional intermediate pool, and a cache of parsed chain
// certificates (leaf and intermediates) keyed by the SHA-256 of their DER bytes so repeated
// validations signed by the same CA don't re-parse ASN.1 every call.
type Store struct {
	roots         *x509.CertPool
	intermediates *x509.CertPool
	certCache     xcache.Cache[*x509.Certificate]
	httpClient    xhttp.Client
}

// NewStore builds a Store from a PEM bundle of trust-anchor root
// certificates.
func NewStore(rootPEM []byte) (*Store, error) {
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(rootPEM); !ok {
		return nil, fmt.Errorf("%w: no certificates found in trust-anchor bundle", errdefs.ErrInvalidParameter)
	}
	return &Store{
		roots:         pool,
		intermediates: x509.NewCertPool(),
		certCache:     xcache.NewMemory[*x509.Certificate](),
		httpClient:    http.DefaultClient,
	}, nil
}

// AddIntermediatesPEM adds further intermediate certificates to chain
// building, beyond any carried in the signature's own x5chain.
func (s *Store) AddIntermediatesPEM(pem []byte) error {
	if ok := s.intermediates.AppendCertsFromPEM(pem); !ok {
		return fmt.Errorf("%w: no certificates found in intermediate bundle", errdefs.ErrInvalidParameter)
	}
	return nil
}

// SetHTTPClient overrides the client used for OCSP responder requests.
func (s *Store) SetHTTPClient(c xhttp.Client) { s.httpClient = c }

// parseCertCached parses DER bytes into an *x509.Certificate, reusing a
// previously-parsed certificate with the same SHA-256 digest.
func (s *Store) parseCertCached(ctx context.Context, der []byte) (*x509.Certificate, error) {
	sum := sha256.Sum256(der)
	key := hex.EncodeToString(sum[:])
	cert, ok := s.certCache.Get(ctx, key, xcache.WithLoader(func(_ context.Context, _ string) (*x509.Certificate, bool) {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, false
		}
		return c, true
	}))
	if !ok {
		return nil, fmt.Errorf("%w: parsing signing certificate", errdefs.ErrInvalidParameter)
	}
	return cert, nil
}

// Verify builds a chain from certChain (leaf first, as embedded in a
// COSE_Sign1 x5chain header) to a root in s, valid at the given time. It
// never returns an error for an untrusted or invalid chain — that is
// reported via Result.Trusted=false — only for input it cannot even parse.
func (s *Store) Verify(ctx context.Context, certChain [][]byte, at time.Time) (Result, error) {
	if len(certChain) == 0 {
		return Result{}, fmt.Errorf("%w: empty certificate chain", errdefs.ErrInvalidParameter)
	}
	leaf, err := s.parseCertCached(ctx, certChain[0])
	if err != nil {
		return Result{}, err
	}

	intermediates := s.intermediates.Clone()
	for _, der := range certChain[1:] {
		c, err := s.parseCertCached(ctx, der)
		if err != nil {
			return Result{}, err
		}
		intermediates.AddCert(c)
	}

	chains, err := leaf.Verify(x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: intermediates,
		CurrentTime:   at,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		xlog.C(ctx).Debugf("trust: chain build failed for %s: %v", leaf.Subject, err)
		return Result{Trusted: false}, nil
	}
	return Result{Chains: chains, Trusted: true}, nil
}

// CheckRevocation issues an OCSP request for leaf against issuer's OCSP
// responder (leaf.OCSPServer[0]) and reports whether it was explicitly
// revoked. A responder that is unreachable or doesn't answer is reported as
// not-checked, not as revoked — per spec.md's Non-goal, the engine verifies
// explicit revocation only, it does not treat "unknown" as "revoked".
func (s *Store) CheckRevocation(ctx context.Context, leaf, issuer *x509.Certificate) (checked bool, revoked bool, err error) {
	if len(leaf.OCSPServer) == 0 {
		return false, false, nil
	}
	req, err := ocsp.CreateRequest(leaf, issuer, nil)
	if err != nil {
		return false, false, fmt.Errorf("building OCSP request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, leaf.OCSPServer[0], bytes.NewReader(req))
	if err != nil {
		return false, false, err
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		xlog.C(ctx).Debugf("trust: OCSP responder unreachable: %v", err)
		return false, false, nil
	}
	defer xio.CloseAndLogError(resp.Body, "OCSP response body")
	var body bytes.Buffer
	if err := xio.LimitCopy(&body, resp.Body, xio.MiB); err != nil {
		return false, false, nil
	}
	ocspResp, err := ocsp.ParseResponseForCert(body.Bytes(), leaf, issuer)
	if err != nil {
		xlog.C(ctx).Debugf("trust: OCSP response unparseable: %v", err)
		return false, false, nil
	}
	return true, ocspResp.Status == ocsp.Revoked, nil
}
