// Package timestamp implements an RFC3161 Time-Stamp Protocol client used to
// obtain a trusted timestamp token over a C2PA claim signature, per
// spec.md §5. It speaks the ASN.1 TimeStampReq/TimeStampResp wire format
// directly over HTTP, the same way the core treats a TSA as an opaque HTTP
// endpoint rather than a named SDK.
package timestamp

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/util/xhttp"
	"github.com/wuxler/c2pa/pkg/util/xio"
	"github.com/wuxler/c2pa/pkg/xlog"
)

// DefaultTimeout is the request timeout spec.md §5 specifies for a TSA
// round trip: a timestamp is best-effort, and the core must not block
// signing indefinitely on an unresponsive service.
const DefaultTimeout = 5 * time.Second

const contentTypeTSQuery = "application/timestamp-query"
const contentTypeTSReply = "application/timestamp-reply"

// messageImprint is the digest-of-the-signature field a TimeStampReq
// carries, per RFC 3161 §2.4.1.
type messageImprint struct {
	HashAlgorithm pkix.AlgorithmIdentifier
	HashedMessage []byte
}

type timeStampReq struct {
	Version        int
	MessageImprint messageImprint
	ReqPolicy      asn1.ObjectIdentifier `asn1:"optional"`
	Nonce          *big.Int              `asn1:"optional"`
	CertReq        bool                  `asn1:"optional,default:false"`
}

type timeStampResp struct {
	Status         pkiStatusInfo
	TimeStampToken asn1.RawValue `asn1:"optional"`
}

type pkiStatusInfo struct {
	Status       int
	StatusString []string           `asn1:"optional"`
	FailInfo     asn1.BitString     `asn1:"optional"`
}

// oidSHA256 is the only message-digest OID the client builds requests with:
// the request's message imprint is always the SHA-256 of the signature
// bytes, whatever the claim's own default algorithm, and spec.md §5 names
// SHA-256 as the timestamp request's digest.
var oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}

// Client requests RFC3161 timestamp tokens from a single TSA endpoint.
type Client struct {
	URL        string
	HTTPClient xhttp.Client
	Timeout    time.Duration
}

// NewClient returns a Client for the given TSA URL with C2PA's default
// 5-second timeout and http.DefaultClient as its transport.
func NewClient(url string) *Client {
	return &Client{URL: url, HTTPClient: http.DefaultClient, Timeout: DefaultTimeout}
}

// Token requests a timestamp token over the digest of signature (the
// detached COSE_Sign1 signature bytes a manifest's claim was signed with),
// honoring both ctx's deadline and c.Timeout, whichever is sooner. A
// request that times out or whose TSA response cannot be parsed returns
// ErrUnavailable — per spec.md §5, an absent timestamp degrades the
// validation result rather than failing signing outright.
func (c *Client) Token(ctx context.Context, signature []byte) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	digest := sha256.Sum256(signature)

	nonce, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	req := timeStampReq{
		Version: 1,
		MessageImprint: messageImprint{
			HashAlgorithm: pkix.AlgorithmIdentifier{Algorithm: oidSHA256},
			HashedMessage: digest[:],
		},
		Nonce:   nonce,
		CertReq: true,
	}
	body, err := asn1.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding TimeStampReq: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building timestamp request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeTSQuery)
	httpReq.Header.Set("Accept", contentTypeTSReply)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		xlog.C(ctx).Debugf("timestamp: request to %s failed: %v", c.URL, err)
		return nil, fmt.Errorf("%w: timestamp authority unreachable", errdefs.ErrUnavailable)
	}
	defer xio.CloseAndLogError(resp.Body, "timestamp response body")

	var respBuf bytes.Buffer
	if err := xio.LimitCopy(&respBuf, resp.Body, xio.MiB); err != nil {
		return nil, fmt.Errorf("%w: reading timestamp response", errdefs.ErrUnavailable)
	}
	respBody := respBuf.Bytes()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: timestamp authority returned status %d", errdefs.ErrUnavailable, resp.StatusCode)
	}

	var tsResp timeStampResp
	if _, err := asn1.Unmarshal(respBody, &tsResp); err != nil {
		return nil, fmt.Errorf("%w: decoding TimeStampResp: %v", errdefs.ErrUnavailable, err)
	}
	// granted (0) or grantedWithMods (1)
	if tsResp.Status.Status != 0 && tsResp.Status.Status != 1 {
		return nil, fmt.Errorf("%w: timestamp authority refused request (status %d)", errdefs.ErrUnavailable, tsResp.Status.Status)
	}
	return tsResp.TimeStampToken.FullBytes, nil
}
