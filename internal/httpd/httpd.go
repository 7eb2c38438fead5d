// Package httpd implements the static-file HTTP server of spec.md §4.4:
// GET/HEAD only, Range support, and status-code mapping, backed by the
// shared VirtualFilesystem. Grounded on the teacher's
// smee/internal/http/servers.go (server lifecycle, Slowloris-mitigating
// timeout) and smee/internal/ipxe/binary/binary.go (http.ServeContent for
// Range/206/416 support).
package httpd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/go-logr/logr"
	"github.com/llfl/finiky/internal/vfs"
)

// readHeaderTimeout mitigates Slowloris-style slow-header attacks, same
// rationale and value as the teacher's ConfigHTTP.
const readHeaderTimeout = 20 * time.Second

// idleTimeout matches spec.md §5's 30s per-connection idle timeout.
const idleTimeout = 30 * time.Second

// contentTypeByExt implements spec.md §4.4's explicit extension table;
// anything else falls back to application/octet-stream.
var contentTypeByExt = map[string]string{
	".txt": "text/plain",
	".html": "text/html",
	".gz":  "application/x-gzip",
	".iso": "application/x-iso9660-image",
}

// Config is the immutable HTTP server configuration.
type Config struct {
	Addr   string // host:port, default ":8080"
	FS     vfs.FS
	Logger logr.Logger
}

// Server wraps a stdlib net/http.Server configured per spec.md §4.4/§5.
type Server struct {
	cfg    Config
	server *http.Server
}

// New builds a Server. Every response sets Connection: close, since
// spec.md §4.4 does not require keep-alive.
func New(cfg Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/", &fileHandler{fs: cfg.FS, log: cfg.Logger})

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
			ErrorLog:          slog.NewLogLogger(logr.ToSlogHandler(cfg.Logger), slog.LevelError),
		},
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpd: %w", err)
	}
	return nil
}

// fileHandler serves GET/HEAD requests out of the VFS.
type fileHandler struct {
	fs  vfs.FS
	log logr.Logger
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Connection", "close")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	content, err := h.fs.Read(clean)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error(err, "reading file", "path", clean)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(clean))
	http.ServeContent(w, r, clean, time.Time{}, bytes.NewReader(content))
}

// contentType implements spec.md §4.4's extension table, falling back to
// application/octet-stream.
func contentType(p string) string {
	ext := path.Ext(p)
	if ct, ok := contentTypeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
