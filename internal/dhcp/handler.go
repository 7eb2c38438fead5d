package dhcp

import (
	"net"

	"github.com/go-logr/logr"
	"github.com/insomniacslk/dhcp/dhcpv4"
)

// leaseTime is the fixed lease duration advertised in option 51. The pool
// itself never expires leases; this value only satisfies clients that
// insist on seeing one.
const leaseTime = 3600

// Config mirrors DhcpConfig from spec.md §3: the immutable per-process
// settings the handler needs to build replies.
type Config struct {
	ServerIP    net.IP
	NextServer  net.IP
	SubnetMask  net.IPMask
	Gateway     net.IP
	DNS         []net.IP
	Protocols   ProtocolFlags
	MacFormat   MacFormat
}

// Handler implements the DHCP/PXE state machine of spec.md §4.2 against a
// shared Pool. It is registered with a Listener (server.go) and invoked
// once per received packet.
type Handler struct {
	Config Config
	Pool   *Pool
	Log    logr.Logger
}

// Handle dispatches pkt by message type, builds the appropriate reply (if
// any), and writes it to the correct destination per the ciaddr/broadcast
// rule in spec.md §4.2.
func (h *Handler) Handle(conn net.PacketConn, peer net.Addr, pkt *dhcpv4.DHCPv4) {
	if pkt == nil || pkt.OpCode != dhcpv4.OpcodeBootRequest {
		return
	}
	log := h.Log.WithValues("mac", pkt.ClientHWAddr.String())

	switch pkt.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		h.handleDiscover(conn, peer, pkt, log)
	case dhcpv4.MessageTypeRequest:
		h.handleRequest(conn, peer, pkt, log)
	case dhcpv4.MessageTypeDecline:
		h.Pool.Release(pkt.ClientHWAddr)
		log.V(1).Info("client declined lease")
	case dhcpv4.MessageTypeRelease:
		h.Pool.Release(pkt.ClientHWAddr)
		log.V(1).Info("client released lease")
	case dhcpv4.MessageTypeInform:
		h.handleInform(conn, peer, pkt, log)
	default:
		log.V(1).Info("ignoring unhandled message type", "type", pkt.MessageType())
	}
}

func (h *Handler) handleDiscover(conn net.PacketConn, peer net.Addr, pkt *dhcpv4.DHCPv4, log logr.Logger) {
	assigned, err := h.Pool.Allocate(pkt.ClientHWAddr)
	if err != nil {
		log.Info("dropping discover, pool exhausted")
		return
	}

	bootFile, ok := h.selectBootFile(pkt)
	if !ok {
		log.V(1).Info("dropping discover, no protocol enabled for client arch")
		return
	}

	reply, err := dhcpv4.NewReplyFromRequest(pkt,
		dhcpv4.WithMessageType(dhcpv4.MessageTypeOffer),
		h.commonModifiers(pkt, assigned, bootFile)...,
	)
	if err != nil {
		log.Error(err, "building offer")
		return
	}
	h.send(conn, pkt, reply, log)
}

func (h *Handler) handleRequest(conn net.PacketConn, peer net.Addr, pkt *dhcpv4.DHCPv4, log logr.Logger) {
	requested := pkt.Options.Get(dhcpv4.OptionRequestedIPAddress)
	var requestedIP net.IP
	if len(requested) == 4 {
		requestedIP = net.IP(requested)
	} else if !pkt.ClientIPAddr.IsUnspecified() {
		requestedIP = pkt.ClientIPAddr
	}

	leased, ok := h.Pool.Lookup(pkt.ClientHWAddr)
	if !ok || requestedIP == nil || !leased.Equal(requestedIP) {
		reply, err := dhcpv4.NewReplyFromRequest(pkt,
			dhcpv4.WithMessageType(dhcpv4.MessageTypeNak),
			dhcpv4.WithGeneric(dhcpv4.OptionServerIdentifier, h.Config.ServerIP.To4()),
		)
		if err != nil {
			log.Error(err, "building nak")
			return
		}
		h.send(conn, pkt, reply, log)
		return
	}

	bootFile, ok := h.selectBootFile(pkt)
	if !ok {
		log.V(1).Info("dropping request, no protocol enabled for client arch")
		return
	}

	reply, err := dhcpv4.NewReplyFromRequest(pkt,
		dhcpv4.WithMessageType(dhcpv4.MessageTypeAck),
		h.commonModifiers(pkt, leased, bootFile)...,
	)
	if err != nil {
		log.Error(err, "building ack")
		return
	}
	h.send(conn, pkt, reply, log)
}

func (h *Handler) handleInform(conn net.PacketConn, peer net.Addr, pkt *dhcpv4.DHCPv4, log logr.Logger) {
	mods := []dhcpv4.Modifier{
		dhcpv4.WithMessageType(dhcpv4.MessageTypeAck),
		dhcpv4.WithGeneric(dhcpv4.OptionServerIdentifier, h.Config.ServerIP.To4()),
		dhcpv4.WithNetmask(h.Config.SubnetMask),
	}
	if len(h.Config.DNS) > 0 {
		mods = append(mods, dhcpv4.WithDNS(h.Config.DNS...))
	}
	if h.Config.Gateway != nil {
		mods = append(mods, dhcpv4.WithRouter(h.Config.Gateway))
	}
	reply, err := dhcpv4.NewReplyFromRequest(pkt, mods...)
	if err != nil {
		log.Error(err, "building inform ack")
		return
	}
	// INFORM replies carry options only; yiaddr stays zero.
	reply.YourIPAddr = net.IPv4zero
	h.send(conn, pkt, reply, log)
}

// selectBootFile resolves the client's architecture and applies spec.md
// §4.2's boot-file selection rules, additionally routing iPXE user-class
// clients to a full TFTP URL instead of a bare filename (see
// SPEC_FULL.md's iPXE loop-breaking supplement).
func (h *Handler) selectBootFile(pkt *dhcpv4.DHCPv4) (string, bool) {
	arch := ClientArch(pkt)
	isPXE := IsPXEClient(pkt)
	file, ok := SelectBootFile(arch, isPXE, h.Config.Protocols)
	if !ok || file == "" {
		return file, ok
	}
	if IsIPXEUserClass(pkt) {
		mac := FormatMAC(pkt.ClientHWAddr, h.Config.MacFormat)
		file = "tftp://" + h.Config.NextServer.String() + "/" + mac + "/" + file
	}
	return file, ok
}

// commonModifiers builds the option set shared by OFFER and ACK replies:
// yiaddr, siaddr, subnet mask, router, DNS, lease time, server identifier,
// and the boot file written into both option 67 and the BOOTP file field.
// It also echoes option 97 (client machine identifier/UUID) back from the
// request when the client sent one, per spec.md §4.2 step 1.
func (h *Handler) commonModifiers(req *dhcpv4.DHCPv4, assigned net.IP, bootFile string) []dhcpv4.Modifier {
	mods := []dhcpv4.Modifier{
		dhcpv4.WithYourIP(assigned),
		dhcpv4.WithServerIP(h.Config.NextServer),
		dhcpv4.WithNetmask(h.Config.SubnetMask),
		dhcpv4.WithLeaseTime(leaseTime),
		dhcpv4.WithGeneric(dhcpv4.OptionServerIdentifier, h.Config.ServerIP.To4()),
		dhcpv4.WithGeneric(dhcpv4.OptionClassIdentifier, []byte(vendorClassPXE)),
		func(d *dhcpv4.DHCPv4) {
			d.BootFileName = bootFile
			d.ServerIPAddr = h.Config.NextServer
		},
	}
	if h.Config.Gateway != nil {
		mods = append(mods, dhcpv4.WithRouter(h.Config.Gateway))
	}
	if len(h.Config.DNS) > 0 {
		mods = append(mods, dhcpv4.WithDNS(h.Config.DNS...))
	}
	if bootFile != "" {
		mods = append(mods, dhcpv4.WithOption(dhcpv4.OptBootFileName(bootFile)))
	}
	if uuid := req.Options.Get(dhcpv4.OptionClientMachineIdentifier); len(uuid) > 0 {
		mods = append(mods, dhcpv4.WithGeneric(dhcpv4.OptionClientMachineIdentifier, uuid))
	}
	return mods
}

// send writes reply to the destination prescribed by spec.md §4.2: ciaddr
// if the client supplied one, otherwise the IPv4 limited broadcast
// address.
func (h *Handler) send(conn net.PacketConn, req, reply *dhcpv4.DHCPv4, log logr.Logger) {
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: 68}
	if !req.ClientIPAddr.IsUnspecified() {
		dst = &net.UDPAddr{IP: req.ClientIPAddr, Port: 68}
	}
	if _, err := conn.WriteTo(reply.ToBytes(), dst); err != nil {
		log.Error(err, "writing dhcp reply", "dst", dst)
	}
}
