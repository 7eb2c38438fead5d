package dhcp

import (
	"context"
	"fmt"
	"net"

	"github.com/insomniacslk/dhcp/dhcpv4/server4"
)

// Listener binds a UDP socket on the configured port (and, if set, a
// specific interface) and dispatches every received BOOTREQUEST to
// Handler.Handle.
type Listener struct {
	Addr      *net.UDPAddr
	Interface string
	Handler   *Handler
}

// ListenAndServe opens the listening socket and serves until ctx is
// cancelled.
func (l *Listener) ListenAndServe(ctx context.Context) error {
	conn, err := server4.NewIPv4UDPConn(l.Interface, l.Addr)
	if err != nil {
		return fmt.Errorf("dhcp: bind %s: %w", l.Addr, err)
	}
	return l.Serve(ctx, conn)
}

// Serve runs the DHCP receive loop over an already-bound connection,
// stopping when ctx is cancelled.
func (l *Listener) Serve(ctx context.Context, conn net.PacketConn) error {
	srv, err := server4.NewServer("", nil, l.Handler.Handle, server4.WithConn(conn))
	if err != nil {
		return fmt.Errorf("dhcp: constructing server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case <-ctx.Done():
		_ = srv.Close()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
