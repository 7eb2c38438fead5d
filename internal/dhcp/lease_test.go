package dhcp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func TestPoolStickyAssignment(t *testing.T) {
	pool := NewPool(
		net.ParseIP("10.0.0.100"),
		net.ParseIP("10.0.0.110"),
		net.ParseIP("10.0.0.1"),
		net.ParseIP("10.0.0.2"),
	)

	a := mac("aa:bb:cc:00:00:01")
	ip1, err := pool.Allocate(a)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.100", ip1.String())

	ip2, err := pool.Allocate(a)
	require.NoError(t, err)
	require.Equal(t, ip1.String(), ip2.String())
}

func TestPoolDistinctAddresses(t *testing.T) {
	pool := NewPool(
		net.ParseIP("10.0.0.100"),
		net.ParseIP("10.0.0.101"),
		net.ParseIP("10.0.0.1"),
		net.ParseIP("10.0.0.2"),
	)

	a := mac("aa:bb:cc:00:00:01")
	b := mac("aa:bb:cc:00:00:02")

	ipA, err := pool.Allocate(a)
	require.NoError(t, err)
	ipB, err := pool.Allocate(b)
	require.NoError(t, err)
	require.NotEqual(t, ipA.String(), ipB.String())
}

func TestPoolExhaustion(t *testing.T) {
	pool := NewPool(
		net.ParseIP("10.0.0.100"),
		net.ParseIP("10.0.0.100"),
		net.ParseIP("10.0.0.1"),
		net.ParseIP("10.0.0.2"),
	)

	_, err := pool.Allocate(mac("aa:bb:cc:00:00:01"))
	require.NoError(t, err)

	_, err = pool.Allocate(mac("aa:bb:cc:00:00:02"))
	require.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPoolReleaseFreesAddress(t *testing.T) {
	pool := NewPool(
		net.ParseIP("10.0.0.100"),
		net.ParseIP("10.0.0.100"),
		net.ParseIP("10.0.0.1"),
		net.ParseIP("10.0.0.2"),
	)

	a := mac("aa:bb:cc:00:00:01")
	_, err := pool.Allocate(a)
	require.NoError(t, err)

	pool.Release(a)

	b := mac("aa:bb:cc:00:00:02")
	ip, err := pool.Allocate(b)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.100", ip.String())
}
