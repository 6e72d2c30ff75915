// Package zap adapts a *zap.Logger to concache.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/concache"
	"go.uber.org/zap"
)

type Logger struct{ L *zap.Logger }

var _ concache.Logger = Logger{}

// New names the logger "concache" so cache events are easy to filter.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("concache")} }

func (z Logger) Debug(msg string, f concache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f concache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f concache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f concache.Fields) { z.L.Error(msg, zf(f)...) }

// zf converts fields in key order; errors keep zap's error encoding.
func zf(f concache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
