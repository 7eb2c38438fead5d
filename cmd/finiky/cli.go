package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/llfl/finiky"
	"github.com/llfl/finiky/internal/config"
)

// optionalString/optionalInt/optionalBool are flag.Value implementations
// that record whether Set was ever called, so a "start" flag only
// overrides a loaded config value when the user actually passed it.
type optionalString struct {
	val string
	set bool
}

func (o *optionalString) String() string { return o.val }
func (o *optionalString) Set(s string) error {
	o.val, o.set = s, true
	return nil
}

type optionalInt struct {
	val int
	set bool
}

func (o *optionalInt) String() string { return fmt.Sprintf("%d", o.val) }
func (o *optionalInt) Set(s string) error {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	o.val, o.set = v, true
	return nil
}

type optionalBool struct {
	val bool
	set bool
}

func (o *optionalBool) String() string { return fmt.Sprintf("%t", o.val) }
func (o *optionalBool) Set(s string) error {
	switch s {
	case "true", "1":
		o.val = true
	case "false", "0":
		o.val = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	o.set = true
	return nil
}

// Execute builds the `finiky gen-config`/`finiky start` command tree,
// parses args, and runs the selected subcommand. Grounded on the
// teacher's cmd/tinkerbell/cmd.go (ff.Command + ffhelp on parse failure).
func Execute(ctx context.Context, args []string) error {
	var (
		configPath  = &optionalString{val: "config.toml"}
		dhcpPort    = &optionalInt{}
		tftpPort    = &optionalInt{}
		httpPort    = &optionalInt{}
		tftpRoot    = &optionalString{}
		httpRoot    = &optionalString{}
		enableEFI   = &optionalBool{}
		enableLegacy = &optionalBool{}
		logLevel    = &optionalInt{val: 0}
	)

	startFS := ff.NewFlagSet("start")
	mustRegister(startFS, "config", "path to a TOML config file", configPath)
	mustRegister(startFS, "dhcp-port", "override [dhcp] port", dhcpPort)
	mustRegister(startFS, "tftp-port", "override [tftp] port", tftpPort)
	mustRegister(startFS, "http-port", "override [http] port", httpPort)
	mustRegister(startFS, "tftp-root", "override [tftp] root", tftpRoot)
	mustRegister(startFS, "http-root", "override [http] root", httpRoot)
	mustRegister(startFS, "enable-efi", "override [dhcp.protocols] efi", enableEFI)
	mustRegister(startFS, "enable-legacy", "override [dhcp.protocols] legacy", enableLegacy)
	mustRegister(startFS, "log-level", "log verbosity (0=info, 1=debug, ...)", logLevel)

	startCmd := &ff.Command{
		Name:      "start",
		Usage:     "finiky start [flags]",
		ShortHelp: "run the DHCP, TFTP, and HTTP servers",
		Flags:     startFS,
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := config.Load(configPath.val)
			if err != nil {
				return err
			}
			applyOverrides(cfg, dhcpPort, tftpPort, httpPort, tftpRoot, httpRoot, enableEFI, enableLegacy)

			log := defaultLogger(logLevel.val)
			srv, err := finiky.New(*cfg, log)
			if err != nil {
				return err
			}
			return srv.Start(ctx, log)
		},
	}

	genConfigFS := ff.NewFlagSet("gen-config")
	genConfigCmd := &ff.Command{
		Name:      "gen-config",
		Usage:     "finiky gen-config [PATH]",
		ShortHelp: "write a default configuration file",
		Flags:     genConfigFS,
		Exec: func(_ context.Context, args []string) error {
			path := "config.toml"
			if len(args) > 0 {
				path = args[0]
			}
			return config.WriteDefault(path)
		},
	}

	rootFS := ff.NewFlagSet("finiky")
	root := &ff.Command{
		Name:        "finiky",
		Usage:       "finiky <gen-config|start> [flags]",
		ShortHelp:   "a PXE server combining DHCP, TFTP, and HTTP",
		Flags:       rootFS,
		Subcommands: []*ff.Command{genConfigCmd, startCmd},
	}

	if err := root.Parse(args, ff.WithEnvVarPrefix("FINIKY")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintln(os.Stderr, ffhelp.Command(root))
			return nil
		}
		fmt.Fprintln(os.Stderr, ffhelp.Command(root))
		return err
	}

	return root.Run(ctx)
}

func mustRegister(fs *ff.FlagSet, name, usage string, v interface {
	String() string
	Set(string) error
}) {
	if _, err := fs.AddFlag(ff.FlagConfig{
		LongName: name,
		Usage:    usage,
		Value:    v,
	}); err != nil {
		panic(err)
	}
}

func applyOverrides(cfg *config.Config, dhcpPort, tftpPort, httpPort *optionalInt, tftpRoot, httpRoot *optionalString, enableEFI, enableLegacy *optionalBool) {
	if dhcpPort.set {
		cfg.DHCP.Port = dhcpPort.val
	}
	if tftpPort.set {
		cfg.TFTP.Port = tftpPort.val
	}
	if httpPort.set {
		cfg.HTTP.Port = httpPort.val
	}
	if tftpRoot.set {
		cfg.TFTP.Root = tftpRoot.val
	}
	if httpRoot.set {
		cfg.HTTP.Root = httpRoot.val
	}
	if enableEFI.set {
		cfg.DHCP.Protocols.EFI = enableEFI.val
	}
	if enableLegacy.set {
		cfg.DHCP.Protocols.Legacy = enableLegacy.val
	}
}
