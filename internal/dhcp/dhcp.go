// Package dhcp implements the DHCP/PXE request-response state machine:
// client-architecture detection, boot-file selection, and a sticky
// in-memory address pool, wired atop github.com/insomniacslk/dhcp.
package dhcp

import (
	"encoding/binary"
	"errors"
	"net"
	"strings"

	"github.com/insomniacslk/dhcp/dhcpv4"
)

// Arch is the 16-bit client system architecture code carried in DHCP
// option 93 (RFC 4578).
type Arch uint16

const (
	ArchX86BIOS  Arch = 0x0000
	ArchX86UEFI  Arch = 0x0006
	ArchX64UEFI  Arch = 0x0007
	ArchEBC      Arch = 0x0009
	ArchUnknown  Arch = 0xFFFF
)

// BootFile names advertised to clients. These match the two protocol
// families spec.md enables independently (efi, legacy).
const (
	BootFileEFI    = "bootx64.efi"
	BootFileLegacy = "pxelinux.0"
)

// vendorClassPXE is the prefix option 60 must carry for a request to be
// considered a PXE client at all.
const vendorClassPXE = "PXEClient"

// userClassIPXE identifies a client that has already chainloaded iPXE and
// is asking for its next script/binary over option 77.
const userClassIPXE = "iPXE"

// raspberryPiOUIs are hardware-address prefixes (first 3 octets) of known
// Raspberry Pi network boot ROMs, which sometimes report arch 0x0000 over
// option 93 even when they require the ARM64 EFI path.
var raspberryPiOUIs = [][3]byte{
	{0xb8, 0x27, 0xeb},
	{0xdc, 0xa6, 0x32},
	{0xe4, 0x5f, 0x01},
	{0x28, 0xcd, 0xc1},
	{0xd8, 0x3a, 0xdd},
}

func isRaspberryPi(mac net.HardwareAddr) bool {
	if len(mac) < 3 {
		return false
	}
	for _, oui := range raspberryPiOUIs {
		if mac[0] == oui[0] && mac[1] == oui[1] && mac[2] == oui[2] {
			return true
		}
	}
	return false
}

// ClientArch extracts the architecture code from DHCP option 93. It
// returns ArchX64UEFI for a hardware address matching a known Raspberry Pi
// boot ROM quirk (see SPEC_FULL.md's Raspberry Pi supplement: these ROMs
// sometimes report arch 0x0000 over option 93 even though they require the
// EFI boot path), or ArchUnknown if the option is absent or truncated.
func ClientArch(pkt *dhcpv4.DHCPv4) Arch {
	if isRaspberryPi(pkt.ClientHWAddr) {
		return ArchX64UEFI
	}
	raw := pkt.Options.Get(dhcpv4.OptionClientSystemArchitectureType)
	if len(raw) < 2 {
		return ArchUnknown
	}
	return Arch(binary.BigEndian.Uint16(raw[:2]))
}

// IsPXEClient reports whether option 60 (vendor class identifier) begins
// with "PXEClient", the baseline gate for treating a DISCOVER/REQUEST as a
// network-boot attempt at all.
func IsPXEClient(pkt *dhcpv4.DHCPv4) bool {
	raw := pkt.Options.Get(dhcpv4.OptionClassIdentifier)
	return strings.HasPrefix(string(raw), vendorClassPXE)
}

// IsIPXEUserClass reports whether DHCP option 77 (user class) identifies
// the client as iPXE, which changes boot-file selection to a full TFTP
// URL to avoid a chainload loop.
func IsIPXEUserClass(pkt *dhcpv4.DHCPv4) bool {
	raw := pkt.Options.Get(dhcpv4.OptionUserClassInformation)
	return strings.Contains(string(raw), userClassIPXE)
}

// ErrPoolExhausted and ErrNoBootFile classify why a DISCOVER produced no
// reply.
var (
	ErrPoolExhausted = errors.New("dhcp: address pool exhausted")
	ErrNoBootFile    = errors.New("dhcp: no boot file selectable for client")
)

// ProtocolFlags mirrors DhcpConfig's enabled-protocol set.
type ProtocolFlags struct {
	EFI      bool
	Legacy   bool
	DHCPBoot bool
}

// SelectBootFile implements spec.md §4.2's ordered boot-file selection
// rules. ok is false when the DISCOVER/REQUEST must be dropped silently
// because no enabled protocol matches the detected architecture.
func SelectBootFile(arch Arch, isPXEClient bool, flags ProtocolFlags) (file string, ok bool) {
	switch {
	case isPXEClient && (arch == ArchX86UEFI || arch == ArchX64UEFI || arch == ArchEBC) && flags.EFI:
		return BootFileEFI, true
	case (arch == ArchX86BIOS || arch == ArchUnknown) && flags.Legacy:
		return BootFileLegacy, true
	case flags.DHCPBoot:
		return "", true
	default:
		return "", false
	}
}
