package metrics

import (
	"time"

	"github.com/eunmann/debpkgstats/pkg/contents"
	"github.com/rs/zerolog"
)

// LogHook returns a timing hook that logs each operation at debug level.
func LogHook(log zerolog.Logger) contents.TimingHook {
	return func(op string, d time.Duration) {
		log.Debug().Str("op", op).Dur("duration", d).Msg("timed operation")
	}
}

// Chain returns a hook calling each non-nil hook in order.
func Chain(hooks ...contents.TimingHook) contents.TimingHook {
	return func(op string, d time.Duration) {
		for _, h := range hooks {
			if h != nil {
				h(op, d)
			}
		}
	}
}
