// Command rfidisk runs the RFIDisk daemon, or talks to a running one.
//
// Without flags it connects to the device and runs until interrupted. The
// --load, --list and --list-title flags are companion invocations that only
// read or poke the shared-memory files the daemon maintains.
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/version"
)

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("rfidisk"),
		kong.Description("RFID disk slot daemon: launches the app configured for the inserted tag."),
		kong.Vars{"version": version.Banner()},
		kong.UsageOnError(),
	)

	adapter := errors.NewCLIErrorAdapter(cli.Verbose, nil)
	if err := cli.Run(os.Stdout); err != nil {
		adapter.HandleError(err)
	}
}
