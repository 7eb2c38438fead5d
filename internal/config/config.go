// Package config implements the TOML configuration format of spec.md §6:
// [dhcp], [dhcp.protocols], [tftp], [http] sections with defaulted
// fields, loaded and merged the way the teacher's own Config/NewConfig
// pair does it (dario.cat/mergo over a defaults struct).
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
)

// Protocols mirrors spec.md's DhcpConfig enabled-protocol flags.
type Protocols struct {
	EFI      bool `toml:"efi"`
	Legacy   bool `toml:"legacy"`
	DHCPBoot bool `toml:"dhcp_boot"`
}

// DHCP is the [dhcp] section.
type DHCP struct {
	Port       int       `toml:"port"`
	Interface  string    `toml:"interface"` // "" means bind to all interfaces
	RangeStart string    `toml:"range_start"`
	RangeEnd   string    `toml:"range_end"`
	SubnetMask string    `toml:"subnet_mask"`
	Gateway    string    `toml:"gateway"`
	DNS        []string  `toml:"dns"`
	NextServer string    `toml:"next_server"`
	Protocols  Protocols `toml:"protocols"`
}

// TFTP is the [tftp] section.
type TFTP struct {
	Port      int    `toml:"port"`
	Root      string `toml:"root"`
	BlockSize int    `toml:"block_size"`
	TimeoutS  int    `toml:"timeout_seconds"`
}

// HTTP is the [http] section.
type HTTP struct {
	Port int    `toml:"port"`
	Root string `toml:"root"`
}

// Config is the top-level TOML document.
type Config struct {
	DHCP DHCP `toml:"dhcp"`
	TFTP TFTP `toml:"tftp"`
	HTTP HTTP `toml:"http"`
}

// Default returns the configuration written by `finiky gen-config` and
// used to fill in any field absent from a loaded file.
func Default() Config {
	return Config{
		DHCP: DHCP{
			Port:       67,
			RangeStart: "10.0.0.100",
			RangeEnd:   "10.0.0.200",
			SubnetMask: "255.255.255.0",
			NextServer: "10.0.0.1",
			Protocols: Protocols{
				EFI:    true,
				Legacy: true,
			},
		},
		TFTP: TFTP{
			Port:      69,
			Root:      "/var/lib/finiky/tftp",
			BlockSize: 512,
			TimeoutS:  5,
		},
		HTTP: HTTP{
			Port: 8080,
			Root: "/var/lib/finiky/http",
		},
	}
}

// Load reads a TOML file at path and merges it over Default(), so that
// any field the file omits keeps its default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}
	var loaded Config
	md, err := toml.DecodeFile(path, &loaded)
	if err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := mergo.Merge(&cfg, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merging %s: %w", path, err)
	}
	// mergo never copies a zero value, so a protocol flag the file sets to
	// false is applied here explicitly.
	if md.IsDefined("dhcp", "protocols", "efi") {
		cfg.DHCP.Protocols.EFI = loaded.DHCP.Protocols.EFI
	}
	if md.IsDefined("dhcp", "protocols", "legacy") {
		cfg.DHCP.Protocols.Legacy = loaded.DHCP.Protocols.Legacy
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration to path, failing if the
// file cannot be created or the write fails. An existing file at path is
// overwritten. Used by `finiky gen-config`.
func WriteDefault(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(Default()); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
