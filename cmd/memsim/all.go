package main

import (
	"io"
)

func (a *app) runAll(w io.Writer) error {
	scenarios := []func(io.Writer) error{
		a.runTranslate,
		a.runTLB,
		a.runAlloc,
		a.runFIFO,
	}

	if a.monitor != nil {
		bar := a.monitor.CreateProgressBar("scenarios", uint64(len(scenarios)))
		defer a.monitor.CompleteProgressBar(bar)

		for i := range scenarios {
			run := scenarios[i]
			scenarios[i] = func(w io.Writer) error {
				bar.IncrementInProgress(1)
				defer bar.MoveInProgressToFinished(1)

				return run(w)
			}
		}
	}

	for _, run := range scenarios {
		err := run(w)
		if err != nil {
			return err
		}
	}

	return nil
}
