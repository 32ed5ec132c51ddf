package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a recorded execution.
type ExecInfo struct {
	Run      string
	Property string
	Value    string
}

// ExecRecorder records how the program was executed.
type ExecRecorder struct {
	recorder DataRecorder
	table    string
	run      string
	entries  []ExecInfo
}

// NewExecRecorder creates the table that stores the execution properties.
// The run ID ties the properties to the events of the same execution.
func NewExecRecorder(recorder DataRecorder, table, run string) *ExecRecorder {
	recorder.CreateTable(table, ExecInfo{})

	return &ExecRecorder{
		recorder: recorder,
		table:    table,
		run:      run,
	}
}

// Start logs the start time, the command line and the working directory.
func (e *ExecRecorder) Start(args []string) {
	e.Set("Start Time", time.Now().Format(execTimeFormat))
	e.Set("Command", strings.Join(args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Set("Working Directory", cwd)
}

// Set adds a property of the execution.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{
		Run:      e.run,
		Property: property,
		Value:    value,
	})
}

// End writes the properties along with the end time.
func (e *ExecRecorder) End() {
	e.Set("End Time", time.Now().Format(execTimeFormat))

	for _, entry := range e.entries {
		e.recorder.InsertData(e.table, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
