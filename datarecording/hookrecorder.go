package datarecording

import (
	"fmt"

	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/sim/id"
)

// EventEntry is one row written by a HookRecorder.
type EventEntry struct {
	Run    string
	Seq    uint64
	Domain string
	Pos    string
	What   string
	Detail string
}

// HookRecorder is a hook that records every event it receives into a table.
type HookRecorder struct {
	recorder DataRecorder
	table    string
	run      string
	seq      uint64
}

// NewHookRecorder creates the table and returns a hook that writes into it.
// All the events recorded by the hook share a unique run ID.
func NewHookRecorder(recorder DataRecorder, table string) *HookRecorder {
	recorder.CreateTable(table, EventEntry{})

	return &HookRecorder{
		recorder: recorder,
		table:    table,
		run:      id.NewParallelIDGenerator().Generate(),
	}
}

// Run returns the ID shared by all the recorded events.
func (h *HookRecorder) Run() string {
	return h.run
}

// Func records the event.
func (h *HookRecorder) Func(ctx hooking.HookCtx) {
	h.seq++

	entry := EventEntry{
		Run:  h.run,
		Seq:  h.seq,
		Pos:  ctx.Pos.Name,
		What: fmt.Sprintf("%+v", ctx.Item),
	}

	if ctx.Domain != nil {
		entry.Domain = ctx.Domain.Name()
	}

	if ctx.Detail != nil {
		entry.Detail = fmt.Sprintf("%v", ctx.Detail)
	}

	h.recorder.InsertData(h.table, entry)
}
