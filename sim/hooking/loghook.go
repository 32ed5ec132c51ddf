package hooking

import (
	"fmt"
	"log"
)

// A LogHook prints one line for every event it receives.
type LogHook struct {
	*log.Logger
}

// NewLogHook creates a LogHook that writes through the given logger.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func prints the event.
func (h *LogHook) Func(ctx HookCtx) {
	where := "?"
	if ctx.Domain != nil {
		where = ctx.Domain.Name()
	}

	line := fmt.Sprintf("%s %s %+v", where, ctx.Pos.Name, ctx.Item)
	if ctx.Detail != nil {
		line += fmt.Sprintf(" (%+v)", ctx.Detail)
	}

	h.Println(line)
}
