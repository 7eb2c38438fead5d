package dhcp

import (
	"encoding/binary"
	"net"
	"sync"
)

// Pool is the sticky, in-memory DHCP address allocator described in
// spec.md §3/§4.2/§9: a single mutex around an insertion-ordered map, no
// expiry, no persistence. Re-requests from a known chaddr always return
// the address previously assigned to it.
type Pool struct {
	start, end uint32
	gateway    uint32
	nextServer uint32

	mu     sync.Mutex
	order  []string
	leases map[string]net.IP // chaddr string -> assigned IP
}

// NewPool builds an allocator over the inclusive range [start, end].
// gateway and nextServer are excluded from the allocatable range.
func NewPool(start, end, gateway, nextServer net.IP) *Pool {
	return &Pool{
		start:      ipToU32(start),
		end:        ipToU32(end),
		gateway:    ipToU32(gateway),
		nextServer: ipToU32(nextServer),
		leases:     make(map[string]net.IP),
	}
}

func ipToU32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

func u32ToIP(v uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}

// Allocate returns the address assigned to mac, assigning a new one from
// the pool if mac has never been seen. It returns ErrPoolExhausted if
// every candidate address in [start, end] is already leased to a
// different MAC.
func (p *Pool) Allocate(mac net.HardwareAddr) (net.IP, error) {
	key := mac.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if ip, ok := p.leases[key]; ok {
		return ip, nil
	}

	taken := make(map[uint32]bool, len(p.leases))
	for _, ip := range p.leases {
		taken[ipToU32(ip)] = true
	}

	for candidate := p.start; candidate <= p.end; candidate++ {
		if candidate == p.gateway || candidate == p.nextServer || taken[candidate] {
			continue
		}
		ip := u32ToIP(candidate)
		p.leases[key] = ip
		p.order = append(p.order, key)
		return ip, nil
	}
	return nil, ErrPoolExhausted
}

// Lookup returns the currently-leased address for mac, if any.
func (p *Pool) Lookup(mac net.HardwareAddr) (net.IP, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ip, ok := p.leases[mac.String()]
	return ip, ok
}

// Release removes mac's lease entry (DECLINE/RELEASE handling).
func (p *Pool) Release(mac net.HardwareAddr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.leases, mac.String())
}
