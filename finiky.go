// Package finiky is the orchestrator of spec.md §4.5: it turns a loaded
// configuration into a running PXE server, constructing the shared
// virtual filesystem(s) and spawning the DHCP, TFTP, and HTTP listeners
// as a supervised group. Grounded on the teacher's smee.Config/Start
// pair (errgroup fan-out, per-listener bind-address validation,
// context.Canceled treated as a clean shutdown).
package finiky

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/llfl/finiky/internal/config"
	"github.com/llfl/finiky/internal/dhcp"
	"github.com/llfl/finiky/internal/httpd"
	"github.com/llfl/finiky/internal/tftp"
	"github.com/llfl/finiky/internal/vfs"
)

// Server holds the fully-resolved, ready-to-run components built from a
// config.Config by New.
type Server struct {
	dhcpListener *dhcp.Listener
	tftpServer   *tftp.Server
	httpServer   *httpd.Server
}

// New validates cfg, constructs the VFS roots for TFTP and HTTP (sharing
// one vfs.FS instance when the roots are identical), and builds the three
// listeners. It performs no I/O beyond opening the VFS roots; binding
// sockets happens in Start.
func New(cfg config.Config, log logr.Logger) (*Server, error) {
	start := net.ParseIP(cfg.DHCP.RangeStart)
	end := net.ParseIP(cfg.DHCP.RangeEnd)
	if start == nil || end == nil {
		return nil, fmt.Errorf("finiky: invalid dhcp address range %q-%q", cfg.DHCP.RangeStart, cfg.DHCP.RangeEnd)
	}
	mask := net.ParseIP(cfg.DHCP.SubnetMask)
	if mask == nil {
		return nil, fmt.Errorf("finiky: invalid subnet mask %q", cfg.DHCP.SubnetMask)
	}
	nextServer := net.ParseIP(cfg.DHCP.NextServer)
	if nextServer == nil {
		return nil, fmt.Errorf("finiky: invalid next_server %q", cfg.DHCP.NextServer)
	}
	var gateway net.IP
	if cfg.DHCP.Gateway != "" {
		gateway = net.ParseIP(cfg.DHCP.Gateway)
		if gateway == nil {
			return nil, fmt.Errorf("finiky: invalid gateway %q", cfg.DHCP.Gateway)
		}
	}
	var dns []net.IP
	for _, d := range cfg.DHCP.DNS {
		ip := net.ParseIP(d)
		if ip == nil {
			return nil, fmt.Errorf("finiky: invalid dns address %q", d)
		}
		dns = append(dns, ip)
	}

	pool := dhcp.NewPool(start, end, gateway, nextServer)
	handler := &dhcp.Handler{
		Config: dhcp.Config{
			ServerIP:   nextServer,
			NextServer: nextServer,
			SubnetMask: net.IPMask(mask.To4()),
			Gateway:    gateway,
			DNS:        dns,
			Protocols: dhcp.ProtocolFlags{
				EFI:      cfg.DHCP.Protocols.EFI,
				Legacy:   cfg.DHCP.Protocols.Legacy,
				DHCPBoot: cfg.DHCP.Protocols.DHCPBoot,
			},
			MacFormat: dhcp.MacFormatColon,
		},
		Pool: pool,
		Log:  log.WithName("dhcp"),
	}
	dhcpListener := &dhcp.Listener{
		Addr:      &net.UDPAddr{Port: cfg.DHCP.Port},
		Interface: cfg.DHCP.Interface,
		Handler:   handler,
	}

	tftpFS, err := vfs.Open(cfg.TFTP.Root)
	if err != nil {
		return nil, fmt.Errorf("finiky: opening tftp root: %w", err)
	}
	var httpFS vfs.FS = tftpFS
	if cfg.HTTP.Root != cfg.TFTP.Root {
		httpFS, err = vfs.Open(cfg.HTTP.Root)
		if err != nil {
			return nil, fmt.Errorf("finiky: opening http root: %w", err)
		}
	}

	tftpServer := tftp.New(tftp.Config{
		Addr:      fmt.Sprintf(":%d", cfg.TFTP.Port),
		BlockSize: cfg.TFTP.BlockSize,
		Timeout:   secondsToDuration(cfg.TFTP.TimeoutS),
		FS:        tftpFS,
		Logger:    log.WithName("tftp"),
	})

	httpServer := httpd.New(httpd.Config{
		Addr:   fmt.Sprintf(":%d", cfg.HTTP.Port),
		FS:     httpFS,
		Logger: log.WithName("http"),
	})

	return &Server{
		dhcpListener: dhcpListener,
		tftpServer:   tftpServer,
		httpServer:   httpServer,
	}, nil
}

// Start spawns the three listeners and blocks until ctx is cancelled or
// one of them fails. A cancellation is reported as a clean shutdown
// (nil), matching spec.md §4.5's "blocks until a termination signal...
// requests cooperative shutdown" behavior.
func (s *Server) Start(ctx context.Context, log logr.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting dhcp listener")
		return s.dhcpListener.ListenAndServe(gctx)
	})
	g.Go(func() error {
		log.Info("starting tftp listener")
		return s.tftpServer.ListenAndServe(gctx)
	})
	g.Go(func() error {
		log.Info("starting http listener")
		return s.httpServer.ListenAndServe(gctx)
	})

	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		// The parent (caller-supplied) context is still live, so this
		// error did not originate from a requested shutdown.
		return err
	}
	return nil
}

func secondsToDuration(s int) (d time.Duration) {
	return time.Duration(s) * time.Second
}
