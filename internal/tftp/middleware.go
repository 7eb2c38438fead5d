package tftp

import (
	"github.com/go-logr/logr"
	"github.com/pin/tftp/v3"
)

// loggingHook reports completed and failed transfers. Grounded on the
// teacher's tftpLoggingMiddleware, which logs the same TransferStats
// fields through the same pin/tftp/v3 Hook interface.
type loggingHook struct {
	log logr.Logger
}

func (h *loggingHook) OnSuccess(stats tftp.TransferStats) {
	h.log.Info("tftp transfer complete",
		"filename", stats.Filename,
		"remoteAddr", stats.RemoteAddr,
		"duration", stats.Duration,
		"datagramsSent", stats.DatagramsSent,
		"datagramsAcked", stats.DatagramsAcked,
		"mode", stats.Mode,
	)
}

func (h *loggingHook) OnFailure(stats tftp.TransferStats, err error) {
	h.log.Info("tftp transfer failed",
		"filename", stats.Filename,
		"remoteAddr", stats.RemoteAddr,
		"error", err.Error(),
	)
}
