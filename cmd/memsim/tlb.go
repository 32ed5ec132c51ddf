package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/memsim/mem/vm/tlb"
)

var (
	tlbInserts = []tlb.Entry{
		{PageNumber: 5, FrameNumber: 15},
		{PageNumber: 10, FrameNumber: 20},
		{PageNumber: 15, FrameNumber: 25},
		{PageNumber: 3, FrameNumber: 8},
		{PageNumber: 7, FrameNumber: 12},
		{PageNumber: 2, FrameNumber: 5},
		{PageNumber: 8, FrameNumber: 18},
		{PageNumber: 11, FrameNumber: 22},
	}
	tlbLookups = []uint64{5, 10, 99, 3, 7, 99, 15, 100, 2, 5, 8, 99}
)

func (a *app) runTLB(w io.Writer) error {
	t := tlb.MakeBuilder().WithNumWays(a.cfg.TLBSize).Build("TLB")
	a.attach(t)

	banner(w, "TLB SIMULATION")

	fmt.Fprintln(w, "\n--- Inserting entries into TLB ---")
	for _, e := range tlbInserts {
		a.exclusive(func() { t.Insert(e.PageNumber, e.FrameNumber) })
		fmt.Fprintf(w, "Inserted: Page %d -> Frame %d\n",
			e.PageNumber, e.FrameNumber)
	}

	printTLBContents(w, t)

	fmt.Fprintln(w, "\n--- Testing TLB lookups ---")
	for _, page := range tlbLookups {
		var (
			frame uint64
			hit   bool
		)

		a.exclusive(func() { frame, hit = t.Lookup(page) })

		if hit {
			fmt.Fprintf(w, "Lookup Page %d: HIT (Frame %d)\n", page, frame)
		} else {
			fmt.Fprintf(w, "Lookup Page %d: MISS\n", page)
		}
	}

	printTLBContents(w, t)
	printTLBStats(w, t.Stats())

	fmt.Fprintln(w, "\n--- Inserting new entry (TLB full) ---")
	a.exclusive(func() { t.Insert(50, 50) })
	fmt.Fprintln(w, "Inserted: Page 50 -> Frame 50")

	printTLBContents(w, t)

	return nil
}

func printTLBContents(w io.Writer, t *tlb.Comp) {
	banner(w, "TLB CONTENTS")

	entries := t.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	table := newTable(w, "Page#", "Frame#")
	for _, e := range entries {
		table.Append([]string{
			strconv.FormatUint(e.PageNumber, 10),
			strconv.FormatUint(e.FrameNumber, 10),
		})
	}
	table.Render()
}

func printTLBStats(w io.Writer, s tlb.Stats) {
	banner(w, "TLB STATISTICS")
	fmt.Fprintf(w, "Hits:           %d\n", s.Hits)
	fmt.Fprintf(w, "Misses:         %d\n", s.Misses)
	fmt.Fprintf(w, "Total:          %d\n", s.Total())
	fmt.Fprintf(w, "Hit Ratio:      %.2f%%\n", s.HitRatio())
}
