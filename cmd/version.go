package cmd

import (
	"fmt"

	"github.com/storacha/uploadurl/pkg/build"
	"github.com/urfave/cli/v2"
)

var VersionCmd = &cli.Command{
	Name:  "version",
	Usage: "Print the uploadurl version.",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "short",
			Usage: "Print only the version number.",
		},
	},
	Action: func(cCtx *cli.Context) error {
		if cCtx.Bool("short") {
			fmt.Fprintln(cCtx.App.Writer, build.Version)
			return nil
		}
		fmt.Fprintf(cCtx.App.Writer, "uploadurl %s\n", build.Version)
		return nil
	},
}
