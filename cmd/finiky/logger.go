package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
)

// defaultLogger builds a JSON slog logger adapted to logr, trimming
// source-file paths to keep log lines readable. Ported from the
// teacher's cmd/tinkerbell/logger.go, with the module-boundary marker
// changed from "tinkerbell" to "finiky".
func defaultLogger(level int) logr.Logger {
	customAttr := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			src, ok := a.Value.Any().(*slog.Source)
			if !ok || src == nil {
				return a
			}
			p := strings.Split(src.File, "/")
			var idx int
			for i, v := range p {
				if v == "finiky" && i+2 < len(p) {
					idx = i + 2
					break
				}
				if v == "mod" && i+1 < len(p) {
					idx = i + 1
					break
				}
			}
			src.File = filepath.Join(p[idx:]...)
			src.File = fmt.Sprintf("%s:%d", src.File, src.Line)
			a.Value = slog.StringValue(src.File)
			a.Key = "caller"
			return a
		}
		if a.Key == slog.LevelKey {
			lvl, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			a.Value = slog.StringValue(strconv.Itoa(int(lvl)))
		}
		return a
	}

	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.Level(-level),
		ReplaceAttr: customAttr,
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	return logr.FromSlogHandler(log.Handler())
}
