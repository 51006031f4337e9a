package commands

import (
	"context"
	"crypto"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v3"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/cmd"
	"github.com/wuxler/c2pa/pkg/cmdhelper"
	"github.com/wuxler/c2pa/pkg/config"
	"github.com/wuxler/c2pa/pkg/cose"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/jumbf"
	"github.com/wuxler/c2pa/pkg/manifest"
	"github.com/wuxler/c2pa/pkg/sigalgo"
	"github.com/wuxler/c2pa/pkg/xlog"
)

var algorithmByName = map[string]cose.Algorithm{
	"es256": cose.AlgES256, "es384": cose.AlgES384, "es512": cose.AlgES512,
	"ps256": cose.AlgPS256, "ps384": cose.AlgPS384, "ps512": cose.AlgPS512,
	"rs256": cose.AlgRS256, "rs384": cose.AlgRS384, "rs512": cose.AlgRS512,
	"ed25519": cose.AlgEdDSA,
}

// NewSignCommand returns a SignCommand with default values.
func NewSignCommand(parent *C2PACommand) *SignCommand {
	return &SignCommand{
		C2PACommand: parent,
		Reserve:     16384,
		Format:      "image/jpeg",
		Action:      "c2pa.created",
	}
}

// SignCommand embeds a signed manifest store into an asset file.
type SignCommand struct {
	*C2PACommand

	InsertAt  int64
	Reserve   int64
	Format    string
	Action    string
	CreatedAt string
	Output    string
}

// ToCLI transforms c into a *cli.Command.
func (c *SignCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Sign an asset with a single-manifest C2PA manifest store",
		ArgsUsage: "ASSET",
		UsageText: `c2patool sign --config c2patool.yaml ASSET

# Sign in place, reserving 16KiB for the manifest store
$ c2patool sign --config signer.yaml photo.jpg

# Sign into a copy of the asset instead of modifying it in place
$ c2patool sign --config signer.yaml --output signed.jpg photo.jpg
`,
		Flags:  c.Flags(),
		Before: cli.BeforeFunc(cmd.ExactArgs(1)),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *SignCommand) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "insert-at",
			Usage:       "byte offset of the asset's manifest insertion point",
			Value:       c.InsertAt,
			Destination: &c.InsertAt,
		},
		&cli.IntFlag{
			Name:        "reserve",
			Usage:       "bytes reserved for the manifest store",
			Value:       c.Reserve,
			Destination: &c.Reserve,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "asset MIME type recorded in the claim's dc:format",
			Value:       c.Format,
			Destination: &c.Format,
		},
		&cli.StringFlag{
			Name:        "action",
			Usage:       "c2pa.actions entry recorded for this signing, e.g. c2pa.created or c2pa.opened",
			Value:       c.Action,
			Destination: &c.Action,
		},
		&cli.StringFlag{
			Name:        "created-at",
			Usage:       "action timestamp, as RFC3339 or unix seconds (default: now)",
			Destination: &c.CreatedAt,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "write the signed asset here instead of modifying ASSET in place",
			Destination: &c.Output,
		},
	}
	return append(flags, c.Common.Flags()...)
}

// Run is the main function for the current command.
func (c *SignCommand) Run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()

	cfg, err := c.Load()
	if err != nil {
		return err
	}
	if cfg.Signer == nil {
		return fmt.Errorf("%w: sign requires a signer configured (--config)", errdefs.ErrInvalidParameter)
	}
	alg, ok := algorithmByName[cfg.Signer.Algorithm]
	if !ok {
		return fmt.Errorf("%w: signer algorithm %q", errdefs.ErrUnsupported, cfg.Signer.Algorithm)
	}
	certChain, err := loadCertChainPEM(cfg.Signer.CertFile)
	if err != nil {
		return err
	}
	signer, err := loadSignerKeyPEM(cfg.Signer.KeyFile)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	a, err := asset.NewFile(fs, path, c.InsertAt)
	if err != nil {
		return err
	}
	if err := a.EnsureManifestSpace(c.Reserve); err != nil {
		return err
	}
	start, length := a.HashExclusionRange()

	digest, err := hashing.DigestWithExclusions(a, []hashing.Exclusion{{Start: start, Length: length}}, hashing.SHA256)
	if err != nil {
		return err
	}
	sum, err := hex.DecodeString(digest.Encoded())
	if err != nil {
		return fmt.Errorf("decoding computed digest: %w", err)
	}

	dataHash, err := newDataHashAssertion(sum, start, length)
	if err != nil {
		return err
	}
	actions, err := newActionsAssertion(c.Action, c.CreatedAt)
	if err != nil {
		return err
	}

	store := &manifest.AssertionStore{Assertions: []manifest.Assertion{actions, dataHash}}
	claim := &manifest.Claim{
		Version:          manifest.ClaimV1,
		InstanceID:       manifest.NewInstanceID(),
		Format:           c.Format,
		DefaultAlgorithm: hashing.SHA256,
		SignatureRef:     "self#jumbf=c2pa.signature",
		ClaimGenerator:   "c2patool/1.0",
	}
	for _, as := range store.Assertions {
		data, err := as.EmitBytes()
		if err != nil {
			return err
		}
		href, err := manifest.WithHash("self#jumbf=c2pa.assertions/"+as.FullLabel(), data, hashing.SHA256)
		if err != nil {
			return err
		}
		claim.Assertions = append(claim.Assertions, href)
	}
	if _, err := claim.Emit(); err != nil {
		return err
	}

	m := &manifest.Manifest{Label: "c2pa.contentauth", Type: manifest.ManifestStandard, Claim: claim, Assertions: store}
	ms := &manifest.ManifestStore{Manifests: []*manifest.Manifest{m}}

	token := c.requestTimestampToken(ctx, cfg, alg, certChain, signer, claim.RawContent)

	data, err := fitSignedStore(ms, m, alg, certChain, signer, token, c.Reserve)
	if err != nil && token != nil {
		xlog.C(ctx).Warnf("sign: timestamp token does not fit in the reserved manifest space, signing without it: %v", err)
		data, err = fitSignedStore(ms, m, alg, certChain, signer, nil, c.Reserve)
	}
	if err != nil {
		return err
	}
	if err := a.WriteManifestJUMBF(data); err != nil {
		return err
	}

	if c.Output != "" {
		if err := afero.WriteFile(fs, c.Output, a.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing signed asset %q: %w", c.Output, err)
		}
		cmdhelper.Fprintf(cmd.Writer, "signed %s -> %s", path, c.Output)
		return nil
	}
	if err := a.Flush(); err != nil {
		return err
	}
	cmdhelper.Fprintf(cmd.Writer, "signed %s in place", path)
	return nil
}

// requestTimestampToken asks the configured TSA (if any) for a token over a
// trial signature of payload. A timestamp is best-effort per spec.md §5: an
// unreachable or misconfigured TSA logs a warning and signing proceeds
// without one, it never fails the sign command outright.
func (c *SignCommand) requestTimestampToken(ctx context.Context, cfg *config.Config, alg cose.Algorithm, certChain [][]byte, signer crypto.Signer, payload []byte) []byte {
	client := cfg.NewTimestampClient()
	if client == nil {
		return nil
	}
	trial := cose.NewSign1(alg, certChain, 0)
	if err := trial.Sign(payload, signer); err != nil {
		xlog.C(ctx).Warnf("sign: building trial signature for timestamping: %v", err)
		return nil
	}
	token, err := client.Token(ctx, trial.Signature())
	if err != nil {
		xlog.C(ctx).Warnf("sign: requesting RFC3161 timestamp: %v", err)
		return nil
	}
	return token
}

func newDataHashAssertion(hash []byte, start, length int64) (manifest.Assertion, error) {
	raw, err := cbor.Marshal(map[string]any{
		"alg":  string(hashing.SHA256),
		"hash": hash,
		"exclusions": []map[string]any{
			{"start": start, "length": length},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding data-hash assertion: %w", err)
	}
	return manifest.ParseAssertion("c2pa.hash.data", jumbf.UUIDCBORAssertion, jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: raw})
}

func newActionsAssertion(action, createdAt string) (manifest.Assertion, error) {
	when := time.Now().UTC()
	if createdAt != "" {
		t, err := parseFlexibleTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing --created-at %q: %v", errdefs.ErrInvalidParameter, createdAt, err)
		}
		when = t
	}
	raw, err := cbor.Marshal(map[string]any{
		"actions": []map[string]any{
			{"action": action, "when": when.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding actions assertion: %w", err)
	}
	return manifest.ParseAssertion("c2pa.actions", jumbf.UUIDCBORAssertion, jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: raw})
}

// parseFlexibleTime accepts either a unix-seconds integer or any string
// layout github.com/spf13/cast's flexible date parser recognizes (RFC3339
// among them), per the --created-at flag's documented contract.
func parseFlexibleTime(v string) (time.Time, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return cast.ToTimeE(v)
}

// loadCertChainPEM reads every CERTIFICATE block in path, leaf first.
func loadCertChainPEM(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signer certificate %q: %w", path, err)
	}
	var chain [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %q has no CERTIFICATE blocks", errdefs.ErrInvalidParameter, path)
	}
	return chain, nil
}

// loadSignerKeyPEM reads a PKCS#8 "PRIVATE KEY" PEM block.
func loadSignerKeyPEM(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signer key %q: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %q is not PEM-encoded", errdefs.ErrInvalidParameter, path)
	}
	return sigalgo.ParsePrivateKeyDER(block.Bytes)
}

// fitSignedStore signs m repeatedly, growing or shrinking the COSE
// envelope's pad field until the emitted store is exactly reserved bytes.
// Re-signing on every iteration (rather than shrinking pad post-hoc) keeps
// the protected header and its signature consistent even for randomized
// algorithms like ECDSA, where mutating a signed field after the fact would
// invalidate the signature.
func fitSignedStore(ms *manifest.ManifestStore, m *manifest.Manifest, alg cose.Algorithm, certChain [][]byte, signer crypto.Signer, token []byte, reserved int64) ([]byte, error) {
	var pad int64
	for i := 0; i < 6; i++ {
		sig := cose.NewSign1(alg, certChain, pad)
		if err := sig.Sign(m.Claim.RawContent, signer); err != nil {
			return nil, err
		}
		if token != nil {
			sig.SetTimestampToken(token)
		}
		m.Signature = sig

		data, err := ms.Emit()
		if err != nil {
			return nil, err
		}
		diff := reserved - int64(len(data))
		if diff == 0 {
			return data, nil
		}
		if diff < 0 && pad == 0 {
			return nil, fmt.Errorf("%w: manifest needs %d more bytes than the %d reserved",
				errdefs.ErrInsufficientPadding, -diff, reserved)
		}
		pad += diff
		if pad < 0 {
			return nil, fmt.Errorf("%w: manifest needs %d more bytes than the %d reserved",
				errdefs.ErrInsufficientPadding, -pad, reserved)
		}
	}
	return nil, fmt.Errorf("%w: padding did not converge to the reserved %d bytes", errdefs.ErrInsufficientPadding, reserved)
}
