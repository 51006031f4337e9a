// Package main is the entry of the application.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wuxler/c2pa/pkg/cmd"
	"github.com/wuxler/c2pa/pkg/cmdhelper"
	"github.com/wuxler/c2pa/pkg/commands"
)

func main() {
	c2pa := commands.NewC2PACommand()
	app := cli.Command{
		Name:                  "c2patool",
		Usage:                 "c2patool signs, validates and inspects C2PA content provenance manifests",
		Suggest:               true,
		EnableShellCompletion: true,
		HideVersion:           true,
		HideHelpCommand:       true,
		Flags:                 c2pa.Flags(),
		Commands: []*cli.Command{
			cmd.NewVersionCommand().ToCLI(),
			c2pa.SignCommand().ToCLI(),
			c2pa.ValidateCommand().ToCLI(),
			c2pa.InspectCommand().ToCLI(),
		},
		ExitErrHandler: func(_ context.Context, c *cli.Command, err error) {
			cli.HandleExitCoder(err)
			cmdhelper.Fprintf(c.ErrWriter, "Error: %+v\n", err)
			os.Exit(1)
		},
	}
	//nolint:errcheck // already checked in root command ExitErrHandler
	_ = app.Run(context.Background(), os.Args)
}
