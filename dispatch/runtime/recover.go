package runtime

import (
	"context"
	"runtime/debug"

	"github.com/LerianStudio/lib-dispatch/dispatch/internal/nilcheck"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
)

// SafeGo runs fn on a new goroutine, recovering any panic and logging it
// under the given goroutine name. It never lets a panic escape to the
// process.
func SafeGo(logger log.Logger, name string, fn func()) {
	if fn == nil {
		return
	}

	go func() {
		defer RecoverAndLog(context.Background(), logger, name)

		fn()
	}()
}

// RecoverAndLog recovers a panic in the deferring goroutine and logs it with
// a stack trace. It must be invoked directly by a defer statement:
//
//	defer runtime.RecoverAndLog(ctx, logger, "close-monitor")
//
// A nil logger suppresses the report but still stops the panic.
func RecoverAndLog(ctx context.Context, logger log.Logger, name string) {
	r := recover()
	if r == nil {
		return
	}

	if nilcheck.Interface(logger) {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	logger.Log(ctx, log.LevelError, "goroutine panic recovered",
		log.String("goroutine", name),
		log.Any("panic", r),
		log.String("stack", string(debug.Stack())),
	)
}
