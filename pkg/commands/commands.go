// Package commands implements the c2patool CLI surface: sign, validate and
// inspect subcommands wrapping pkg/manifest, grounded on the teacher's
// pkg/commands/registry command-struct-plus-ToCLI convention. This package
// is a thin driver — the "external collaborator" spec.md §1 keeps out of
// the core's scope — it never implements validation or signature math
// itself, only CLI ergonomics around pkg/manifest, pkg/config and pkg/trust.
package commands

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wuxler/c2pa/pkg/config"
)

// NewC2PACommand returns the top-level "c2pa" command with its sign,
// validate and inspect subcommands.
func NewC2PACommand() *C2PACommand {
	return &C2PACommand{Common: &Common{}}
}

// C2PACommand is the parent command carrying the configuration-file flag
// every subcommand inherits.
type C2PACommand struct {
	*Common
}

// ToCLI transforms c into a *cli.Command.
func (c *C2PACommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:            "c2pa",
		Usage:           "Inspect, validate and sign C2PA content provenance manifests",
		HideHelpCommand: true,
		Flags:           c.Flags(),
		Commands: []*cli.Command{
			c.SignCommand().ToCLI(),
			c.ValidateCommand().ToCLI(),
			c.InspectCommand().ToCLI(),
		},
	}
}

func (c *C2PACommand) SignCommand() *SignCommand         { return NewSignCommand(c) }
func (c *C2PACommand) ValidateCommand() *ValidateCommand { return NewValidateCommand(c) }
func (c *C2PACommand) InspectCommand() *InspectCommand   { return NewInspectCommand(c) }

// Common holds the configuration-file option every c2patool subcommand
// shares, grounded on the teacher's options.Common flag-struct convention.
type Common struct {
	ConfigFile string
}

// Flags defines the flags related to the current command.
func (c *Common) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to the c2patool YAML configuration file",
			Destination: &c.ConfigFile,
		},
	}
}

// Load reads c.ConfigFile, falling back to config.DefaultPath() and, if that
// doesn't exist either, an empty Config — a validate/inspect run never
// requires a signer identity.
func (c *Common) Load() (*config.Config, error) {
	path := c.ConfigFile
	if path == "" {
		def, err := config.DefaultPath()
		if err != nil {
			return &config.Config{}, nil
		}
		if _, err := os.Stat(def); err != nil {
			return &config.Config{}, nil
		}
		path = def
	}
	return config.Load(path)
}
