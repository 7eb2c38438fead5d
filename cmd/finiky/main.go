// Command finiky is the PXE server's CLI entrypoint: `gen-config` writes
// a default TOML configuration, `start` loads one (applying flag
// overrides) and runs the DHCP/TFTP/HTTP servers until a termination
// signal arrives. Grounded on the teacher's cmd/tinkerbell/main.go
// (signal handling, top-level error reporting) and cmd.go (ff.Command
// subcommand wiring, ffhelp usage on parse failure).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	if err := Execute(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
