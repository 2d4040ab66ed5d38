// logging.go - structured logging for the runtime's own diagnostics
// (deadlock detection, actor crashes, pool exhaustion).
//
// Package-level configuration, following the teacher's globalLogger/
// SetStructuredLogger pattern, promoted from a hand-rolled Logger interface
// to the teacher's own direct dependency, logiface, with stumpy as the
// default zero-allocation JSON backend — see SPEC_FULL.md's Logging section.

package actorloop

import (
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var globalLogger struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

// SetLogger installs the package-level structured logger used for runtime
// diagnostics. Passing nil restores the default stumpy-backed logger.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = l
}

func logger() *logiface.Logger[*stumpy.Event] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return defaultLogger
}

// defaultLogger writes newline-delimited JSON, matching the pack's own
// example wiring (stumpy.L.New with no writer override uses stumpy's
// built-in default writer).
var defaultLogger = stumpy.L.New()

func logCrash(id ActorID, name string, value any) {
	err := &CrashError{ActorID: id, Value: value}
	logger().Err().
		Int64(`actor_id`, int64(id)).
		Str(`actor_name`, name).
		Str(`panic`, valueString(value)).
		Err(err).
		Log(`actor crashed`)
}

func logDeadlock(liveActors int) {
	logger().Err().
		Int64(`live_actors`, int64(liveActors)).
		Log(`deadlock detected: all actors blocked, no pending timers or i/o`)
}

func logPoolExhausted(pool string) {
	err := &PoolExhaustedError{Pool: pool}
	logger().Err().
		Str(`pool`, pool).
		Err(err).
		Log(`pool exhausted`)
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf(`%v`, v)
}
