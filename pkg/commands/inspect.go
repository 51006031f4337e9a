package commands

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/cmd"
	"github.com/wuxler/c2pa/pkg/cmdhelper"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/manifest"
)

// NewInspectCommand returns an InspectCommand with default values.
func NewInspectCommand(parent *C2PACommand) *InspectCommand {
	return &InspectCommand{C2PACommand: parent, Reserve: 16384}
}

// InspectCommand prints an asset's manifest claim chain and validation
// result as JSON, a peripheral consumer of pkg/manifest alongside
// ValidateCommand rather than its own validation path.
type InspectCommand struct {
	*C2PACommand

	InsertAt int64
	Reserve  int64
}

// ToCLI transforms c into a *cli.Command.
func (c *InspectCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print an asset's manifest claim chain and validation result",
		ArgsUsage: "ASSET",
		UsageText: `c2patool inspect ASSET

# Print the manifest chain and validation result as JSON
$ c2patool inspect photo.jpg
`,
		Flags:  c.Flags(),
		Before: cli.BeforeFunc(cmd.ExactArgs(1)),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *InspectCommand) Flags() []cli.Flag {
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
	}
	return append(flags, c.Common.Flags()...)
}

// manifestView is the JSON shape printed for one manifest in the chain.
type manifestView struct {
	Label          string   `json:"label"`
	Type           string   `json:"type"`
	ClaimGenerator string   `json:"claimGenerator,omitempty"`
	InstanceID     string   `json:"instanceID"`
	Format         string   `json:"format,omitempty"`
	Assertions     []string `json:"assertions"`
}

// storeView is the full JSON shape printed by inspect.
type storeView struct {
	Manifests []manifestView         `json:"manifests"`
	Active    string                 `json:"active"`
	Valid     bool                   `json:"valid"`
	Status    []manifest.StatusEntry `json:"status"`
}

// Run is the main function for the current command.
func (c *InspectCommand) Run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()

	cfg, err := c.Load()
	if err != nil {
		return err
	}
	trustStore, err := cfg.NewTrustStore()
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	a, err := asset.NewFile(fs, path, c.InsertAt)
	if err != nil {
		return err
	}
	data, err := a.GetRange(c.InsertAt, c.Reserve)
	if err != nil {
		return fmt.Errorf("%w: %q has no manifest store at the given offset: %v", errdefs.ErrInvalidParameter, path, err)
	}

	store, err := manifest.ParseManifestStore(data, manifest.ClaimV1)
	if err != nil {
		return err
	}
	if trustStore != nil {
		if active := store.Active(); active != nil {
			active.TrustStore = trustStore
		}
	}

	result, err := store.Validate(a)
	if err != nil {
		return err
	}

	view := storeView{Valid: result.IsValid(), Status: result.Entries}
	if active := store.Active(); active != nil {
		view.Active = active.Label
	}
	for _, m := range store.Manifests {
		mv := manifestView{Label: m.Label, InstanceID: m.Claim.InstanceID, Format: m.Claim.Format, ClaimGenerator: m.Claim.ClaimGenerator}
		switch m.Type {
		case manifest.ManifestUpdate:
			mv.Type = "update"
		default:
			mv.Type = "standard"
		}
		for _, as := range m.Assertions.Assertions {
			mv.Assertions = append(mv.Assertions, as.FullLabel())
		}
		view.Manifests = append(view.Manifests, mv)
	}

	content, err := cmdhelper.PrettifyJSON(view)
	if err != nil {
		return err
	}
	cmdhelper.Fprintf(cmd.Writer, "%s", string(content))
	return nil
}
