package commands

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/cmd"
	"github.com/wuxler/c2pa/pkg/cmdhelper"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/manifest"
	"github.com/wuxler/c2pa/pkg/trust"
)

// NewValidateCommand returns a ValidateCommand with default values.
func NewValidateCommand(parent *C2PACommand) *ValidateCommand {
	return &ValidateCommand{
		C2PACommand: parent,
		Reserve:     16384,
		Concurrency: 4,
	}
}

// ValidateCommand validates one or more assets' embedded manifest stores.
// Every asset is independent: its own Reader, its own ValidationResult, no
// shared mutable state, so a batch fans out across goroutines with no
// synchronization beyond collecting results by index.
type ValidateCommand struct {
	*C2PACommand

	InsertAt    int64
	Reserve     int64
	Concurrency int64
}

// ToCLI transforms c into a *cli.Command.
func (c *ValidateCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate one or more assets' embedded C2PA manifest stores",
		ArgsUsage: "ASSET...",
		UsageText: `c2patool validate --config c2patool.yaml ASSET...

# Validate a single asset
$ c2patool validate photo.jpg

# Validate a batch, checking certificate chains against a trust policy
$ c2patool validate --config trust.yaml photo1.jpg photo2.jpg photo3.jpg
`,
		Flags:  c.Flags(),
		Before: cli.BeforeFunc(cmd.MinimumNArgs(1)),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *ValidateCommand) Flags() []cli.Flag {
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
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "maximum number of assets validated in parallel",
			Value:       c.Concurrency,
			Destination: &c.Concurrency,
		},
	}
	return append(flags, c.Common.Flags()...)
}

// assetOutcome is one asset's validation outcome, reported independently of
// every other asset in the batch.
type assetOutcome struct {
	path   string
	result *manifest.ValidationResult
	err    error
}

// Run is the main function for the current command.
func (c *ValidateCommand) Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := c.Load()
	if err != nil {
		return err
	}
	trustStore, err := cfg.NewTrustStore()
	if err != nil {
		return err
	}

	paths := cmd.Args().Slice()
	outcomes := make([]assetOutcome, len(paths))

	group, gctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		group.SetLimit(int(c.Concurrency))
	}
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			result, err := c.validateOne(gctx, path, trustStore)
			outcomes[i] = assetOutcome{path: path, result: result, err: err}
			return nil
		})
	}
	// group.Wait's error is always nil here: a single asset's failure is
	// recorded in its own outcome, never propagated to abort its siblings.
	_ = group.Wait()

	failed := false
	for _, o := range outcomes {
		if o.err != nil {
			cmdhelper.Fprintf(cmd.Writer, "%s: error: %v", o.path, o.err)
			failed = true
			continue
		}
		status := "VALID"
		if !o.result.IsValid() {
			status = "INVALID"
			failed = true
		}
		cmdhelper.Fprintf(cmd.Writer, "%s: %s", o.path, status)
		for _, e := range o.result.Entries {
			cmdhelper.Fprintf(cmd.Writer, "  %-40s %s", e.Code, e.URI)
		}
	}
	if failed {
		return fmt.Errorf("%w: one or more assets failed validation", errdefs.ErrInvalidParameter)
	}
	return nil
}

func (c *ValidateCommand) validateOne(ctx context.Context, path string, trustStore *trust.Store) (*manifest.ValidationResult, error) {
	fs := afero.NewOsFs()
	a, err := asset.NewFile(fs, path, c.InsertAt)
	if err != nil {
		return nil, err
	}
	// Read the already-embedded JUMBF directly by offset: unlike sign,
	// validate must not call EnsureManifestSpace, which zeroes the region
	// for a fresh reservation rather than exposing what's already there.
	data, err := a.GetRange(c.InsertAt, c.Reserve)
	if err != nil {
		return nil, fmt.Errorf("%w: %q has no manifest store at the given offset: %v", errdefs.ErrInvalidParameter, path, err)
	}

	store, err := manifest.ParseManifestStore(data, manifest.ClaimV1)
	if err != nil {
		return nil, err
	}
	if trustStore != nil {
		if active := store.Active(); active != nil {
			active.TrustStore = trustStore
		}
	}
	return store.Validate(a)
}
