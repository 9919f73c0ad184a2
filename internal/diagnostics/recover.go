package diagnostics

import (
	"fmt"
	"runtime/debug"

	"github.com/Yousha/dotlyzer/internal/core"
	"github.com/Yousha/dotlyzer/internal/logging"
)

// runSection evaluates one report section. A panic inside fn is recovered
// into the section's failure so the rest of the report survives it.
func runSection[T any](logger *logging.Logger, name string, fn func() (T, error)) (res core.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("report section panicked",
				"section", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			res = core.Fail[T](core.ErrInternal(fmt.Sprintf("%s section panicked: %v", name, r)))
		}
	}()

	v, err := fn()
	if err != nil {
		logger.Debug("report section unavailable", "section", name, "error", err)
		return core.Fail[T](err)
	}
	return core.Ok(v)
}
