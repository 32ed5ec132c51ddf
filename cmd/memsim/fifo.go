package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/memsim/mem/vm/replacement"
	"github.com/sarchlab/memsim/monitoring"
)

type fifoCase struct {
	title string
	pages []uint64
}

var standardReferenceString = []uint64{
	7, 0, 1, 2, 0, 3, 0, 4, 2, 3, 0, 3, 2, 1, 2, 0, 1, 7, 0, 1,
}

var fifoCases = []fifoCase{
	{"Standard Reference String", standardReferenceString},
	{"Belady's Anomaly Example", []uint64{1, 2, 3, 4, 1, 2, 5, 1, 2, 3, 4, 5}},
	{"Simple Repeating Pattern", []uint64{1, 2, 3, 1, 2, 3, 1, 2, 3}},
	{"Sequential References", []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	{"Single Page Repeated (Best Case)", []uint64{1, 1, 1, 1, 1, 1, 1, 1}},
}

func (a *app) runFIFO(w io.Writer) error {
	banner(w, "PAGE REPLACEMENT ALGORITHM SIMULATION")

	var bar *monitoring.ProgressBar
	if a.monitor != nil {
		bar = a.monitor.CreateProgressBar("fifo cases", uint64(len(fifoCases)))
		defer a.monitor.CompleteProgressBar(bar)
	}

	for i, c := range fifoCases {
		fmt.Fprintf(w, "\n--- TEST CASE %d: %s ---\n", i+1, c.title)

		fifo := replacement.MakeBuilder().
			WithNumFrames(a.cfg.FIFOFrames).
			Build(fmt.Sprintf("FIFO.Case%d", i+1))
		a.attach(fifo)

		var steps []replacement.Step
		a.exclusive(func() { steps = fifo.Simulate(c.pages) })

		printSteps(w, fifo.NumFrames(), c.pages, steps)
		printFIFOResults(w, fifo.Stats())

		if bar != nil {
			bar.IncrementFinished(1)
		}
	}

	fmt.Fprintf(w, "\n--- TEST CASE %d: Comparison with Different Frame Counts ---\n",
		len(fifoCases)+1)

	for _, n := range []int{a.cfg.FIFOFrames, a.cfg.FIFOFrames + 1} {
		fifo := replacement.MakeBuilder().
			WithNumFrames(n).
			Build(fmt.Sprintf("FIFO.%dFrames", n))
		a.attach(fifo)

		a.exclusive(func() { fifo.Simulate(standardReferenceString) })

		fmt.Fprintf(w, "\nWith %d Frames:\n", n)
		fmt.Fprintf(w, "Page Faults: %d\n", fifo.Stats().Faults)
	}

	return nil
}

func printSteps(
	w io.Writer,
	numFrames int,
	pages []uint64,
	steps []replacement.Step,
) {
	banner(w, "FIFO PAGE REPLACEMENT SIMULATION")
	fmt.Fprintf(w, "Reference String: %s\n", joinPages(pages))
	fmt.Fprintf(w, "Number of Frames: %d\n", numFrames)

	table := newTable(w, "Reference", "Page Fault", "Frames", "Evicted")
	for _, s := range steps {
		fault, evicted := "No", "-"
		if s.Fault {
			fault = "Yes"
		}

		if s.HasEvicted {
			evicted = strconv.FormatUint(s.Evicted, 10)
		}

		table.Append([]string{
			strconv.FormatUint(s.Page, 10),
			fault,
			joinPages(s.Frames),
			evicted,
		})
	}
	table.Render()
}

func printFIFOResults(w io.Writer, s replacement.Stats) {
	banner(w, "RESULTS")
	fmt.Fprintf(w, "Total Page References:   %d\n", s.References)
	fmt.Fprintf(w, "Total Page Faults:       %d\n", s.Faults)
	fmt.Fprintf(w, "Page Fault Rate:         %.2f%%\n", s.FaultRate())
	fmt.Fprintf(w, "Page Hit Rate:           %.2f%%\n", s.HitRate())
}

func joinPages(pages []uint64) string {
	s := make([]string, len(pages))
	for i, p := range pages {
		s[i] = strconv.FormatUint(p, 10)
	}

	return strings.Join(s, " ")
}
