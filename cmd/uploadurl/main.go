package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/uploadurl/cmd"
)

var log = logging.Logger("uploadurl")

func main() {
	logging.SetLogLevel("*", "info")

	app := &cli.App{
		Name:  "uploadurl",
		Usage: "Issue presigned upload URLs.",
		Commands: []*cli.Command{
			cmd.ServeCmd,
			cmd.VersionCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
