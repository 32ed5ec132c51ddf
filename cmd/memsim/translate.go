package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/memsim/mem/vm"
	"github.com/sarchlab/memsim/mem/vm/addresstranslator"
)

var translateAddresses = []uint64{0, 1023, 1024, 5000, 10240, 65535, 100000}

func (a *app) runTranslate(w io.Writer) error {
	at := addresstranslator.MakeBuilder().
		WithNumPages(a.cfg.NumPages).
		WithNumFrames(a.cfg.NumFrames).
		WithPageSize(a.cfg.PageSize).
		WithSeed(a.cfg.Seed).
		Build("AT")
	a.attach(at)

	banner(w, "PAGE TABLE")

	table := newTable(w, "Page#", "Frame#", "Valid")
	for page, e := range at.PageTable().Entries() {
		table.Append([]string{
			strconv.Itoa(page),
			strconv.FormatUint(e.FrameNumber, 10),
			strconv.FormatBool(e.Valid),
		})
	}
	table.Render()

	banner(w, "ADDRESS TRANSLATION TESTS")

	table = newTable(w,
		"Logical Address", "Page#", "Offset", "Physical Address", "Status")
	for _, addr := range translateAddresses {
		var (
			pAddr uint64
			err   error
		)

		a.exclusive(func() { pAddr, err = at.Translate(addr) })

		page, offset := at.Decompose(addr)
		physical := strconv.FormatUint(pAddr, 10)
		if err != nil {
			physical = "N/A"
		}

		table.Append([]string{
			strconv.FormatUint(addr, 10),
			strconv.FormatUint(page, 10),
			strconv.FormatUint(offset, 10),
			physical,
			translationStatus(err),
		})
	}
	table.Render()

	return nil
}

func translationStatus(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, vm.ErrInvalidPage):
		return "FAIL (Invalid page)"
	case errors.Is(err, vm.ErrPageFault):
		return "FAIL (Page fault)"
	default:
		return fmt.Sprintf("FAIL (%v)", err)
	}
}
