// Package tftp implements the read-only TFTP server described in
// spec.md §4.3. Wire-level concerns — option negotiation (RFC
// 2347/2348/2349), windowed lock-step transfer, 16-bit block wraparound,
// and retransmission — are handled by github.com/pin/tftp/v3, the same
// library the teacher stack uses for this exact concern; this package
// supplies the VFS-backed handler and the server lifecycle wrapper.
package tftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/llfl/finiky/internal/vfs"
	"github.com/pin/tftp/v3"
)

// Config is the immutable TFTP server configuration.
type Config struct {
	Addr      string // host:port, default ":69"
	BlockSize int    // default 512
	Timeout   time.Duration
	FS        vfs.FS
	Logger    logr.Logger
}

// Server wraps a pin/tftp/v3 server configured from Config.
type Server struct {
	cfg Config
	srv *tftp.Server
}

// New builds a Server. The underlying library server is constructed here
// so ListenAndServe can simply delegate to it.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg}
	handler := &readHandler{fs: cfg.FS, log: cfg.Logger}
	s.srv = tftp.NewServer(handler.ServeTFTP, s.rejectWrite)
	if cfg.BlockSize > 0 {
		s.srv.SetBlockSize(cfg.BlockSize)
	}
	if cfg.Timeout > 0 {
		s.srv.SetTimeout(cfg.Timeout)
	}
	s.srv.SetHook(&loggingHook{log: cfg.Logger})
	return s
}

// ListenAndServe binds the configured address and serves RRQs until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.srv.Shutdown()
	}()
	if err := s.srv.ListenAndServe(s.cfg.Addr); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tftp: %w", err)
	}
	return nil
}

// rejectWrite refuses every WRQ by returning a permission error, which
// pin/tftp/v3 reports to the client as a TFTP ERROR packet. The ERROR code
// in that packet is chosen by the library; this package does not set it.
// Grounded on the teacher's own handleWrite, which rejects writes the same
// way.
func (s *Server) rejectWrite(filename string, _ io.WriterTo) error {
	s.cfg.Logger.Info("rejecting tftp write request", "filename", filename)
	return fmt.Errorf("tftp write not supported: %w", os.ErrPermission)
}

// readHandler resolves RRQ filenames through the VFS.
type readHandler struct {
	fs  vfs.FS
	log logr.Logger
}

// ServeTFTP implements the pin/tftp/v3 read-handler signature. It hands
// the full file content to rf.ReadFrom, letting the library drive block
// segmentation, option negotiation, and retransmission.
func (h *readHandler) ServeTFTP(filename string, rf io.ReaderFrom) error {
	content, err := h.fs.Read(filename)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			return os.ErrNotExist
		}
		return err
	}
	if sized, ok := rf.(tftp.OutgoingTransfer); ok {
		sized.SetSize(int64(len(content)))
	}
	_, err = rf.ReadFrom(bytes.NewReader(content))
	return err
}
