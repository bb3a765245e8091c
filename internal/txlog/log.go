// Package txlog centralizes the package-level loggers used across
// txindexd: every subsystem logger is declared here as a replaceable
// placeholder so subpackages can log before the root rotating logger
// exists, and SetupLoggers rewires them all once it does.
package txlog

import (
	"github.com/decred/slog"
	"github.com/txindexd/txindexd/internal/build"
)

// replaceableLogger is a thin wrapper around a logger so it can be swapped
// out without pointer indirection leaking into call sites.
type replaceableLogger struct {
	slog.Logger
	subsystem string
}

var (
	pkgLoggers []*replaceableLogger

	addLogger = func(subsystem string) *replaceableLogger {
		l := &replaceableLogger{
			Logger:    build.NewSubLogger(subsystem, nil),
			subsystem: subsystem,
		}
		pkgLoggers = append(pkgLoggers, l)
		return l
	}

	// IngestLog logs ingestion pipeline activity: consume, normalize,
	// batch flush, DLQ routing.
	IngestLog = addLogger("TXID")

	// WSChanLog logs live subscription channel activity: subscribe,
	// unsubscribe, fan-out, heartbeats.
	WSChanLog = addLogger("WSCH")

	// AuthLog logs wallet-auth gate activity: nonce issuance,
	// verification outcomes.
	AuthLog = addLogger("AUTH")

	// HTTPLog logs the cached query endpoint and general REST surface.
	HTTPLog = addLogger("HTTP")

	// StoreLog logs transaction store and KV adapter activity.
	StoreLog = addLogger("STOR")

	// RateLog logs token-bucket and rate-limit decisions.
	RateLog = addLogger("RATE")

	// SrvrLog logs top-level server lifecycle: startup, shutdown.
	SrvrLog = addLogger("SRVR")
)

// SetupLoggers rewires every package-level logger declared above to the
// given root rotating log writer, replacing the disabled placeholders
// created at init time.
func SetupLoggers(root *build.RotatingLogWriter) {
	for _, l := range pkgLoggers {
		l.Logger = build.NewSubLogger(l.subsystem, root.GenSubLogger)
		root.RegisterSubLogger(l.subsystem, l.Logger)
	}
}
