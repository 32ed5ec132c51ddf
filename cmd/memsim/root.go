package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/browser"
	"github.com/sarchlab/memsim/config"
	"github.com/sarchlab/memsim/datarecording"
	"github.com/sarchlab/memsim/monitoring"
	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type options struct {
	envFile     string
	seed        int64
	verbose     bool
	record      string
	monitorPort int
	open        bool
	strategy    string
}

// app holds what the scenarios share within one invocation.
type app struct {
	opts options
	cfg  config.Config

	hooks    []hooking.Hook
	recorder datarecording.DataRecorder
	exec     *datarecording.ExecRecorder
	monitor  *monitoring.Monitor

	// waitForExit blocks until the user stops the monitoring server.
	waitForExit func()
}

func newRootCmdFor(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memsim",
		Short: "memsim replays memory management scenarios.",
		Long: `memsim replays the memory management scenarios of an operating ` +
			`systems course: address translation, TLB lookups, contiguous ` +
			`allocation, and FIFO page replacement.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setUp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.waitForMonitor(cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.envFile, "env", ".env",
		"Dotenv file with MEMSIM_* parameters.")
	flags.Int64Var(&a.opts.seed, "seed", 0,
		"Seed of the random page table. Overrides MEMSIM_SEED, which "+
			"defaults to 1, so runs are reproducible unless a seed is given.")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false,
		"Print every simulator event.")
	flags.StringVar(&a.opts.record, "record", "",
		"Record the simulator events into <record>.sqlite3.")
	flags.IntVar(&a.opts.monitorPort, "monitor", 0,
		"Serve the simulators on this port and wait for Ctrl-C after the run.")
	flags.BoolVar(&a.opts.open, "open", false,
		"Open the monitoring server in a browser.")

	allocCmd := scenarioCmd("alloc", "Allocate memory with the fit strategies.",
		func(w io.Writer) error { return a.runAllocWith(w, a.opts.strategy) })
	allocCmd.Flags().StringVar(&a.opts.strategy, "strategy", "",
		"Only run the given strategy (first|best|worst).")

	rootCmd.AddCommand(
		scenarioCmd("translate", "Translate logical addresses.", a.runTranslate),
		scenarioCmd("tlb", "Look pages up in an LRU TLB.", a.runTLB),
		allocCmd,
		scenarioCmd("fifo", "Replace pages first in first out.", a.runFIFO),
		scenarioCmd("all", "Run every scenario.", a.runAll),
	)

	return rootCmd
}

func scenarioCmd(
	use, short string,
	run func(w io.Writer) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout())
		},
	}
}

// Execute runs the command line and exits through atexit so that the
// recordings are flushed.
func Execute() {
	a := &app{waitForExit: waitForInterrupt}

	err := a.execute(newRootCmdFor(a))
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// execute runs cmd and closes the recording whether or not the scenario
// succeeded.
func (a *app) execute(cmd *cobra.Command) error {
	err := cmd.Execute()

	closeErr := a.stopRecording()
	if err == nil {
		err = closeErr
	}

	return err
}

func (a *app) setUp(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.envFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed = a.opts.seed
	}

	if cmd.Flags().Changed("record") {
		cfg.RecordPath = a.opts.record
	}

	if cmd.Flags().Changed("monitor") {
		cfg.MonitorPort = a.opts.monitorPort
	}

	a.cfg = cfg

	if a.opts.verbose {
		logger := log.New(cmd.ErrOrStderr(), "", 0)
		a.hooks = append(a.hooks, hooking.NewLogHook(logger))
	}

	if cfg.RecordPath != "" {
		a.startRecording()
	}

	if cfg.MonitorPort != 0 {
		a.monitor = monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
		url := a.monitor.StartServer()

		if a.opts.open {
			err = browser.OpenURL(url + "/api/list_simulators")
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Cannot open browser: %v\n", err)
			}
		}
	}

	return nil
}

func (a *app) waitForMonitor(w io.Writer) {
	if a.monitor == nil {
		return
	}

	fmt.Fprintln(w, "Simulation finished. Press Ctrl-C to exit.")
	a.waitForExit()
}

func (a *app) startRecording() {
	a.recorder = datarecording.New(a.cfg.RecordPath)

	events := datarecording.NewHookRecorder(a.recorder, "memsim_events")
	a.hooks = append(a.hooks, events)

	a.exec = datarecording.NewExecRecorder(
		a.recorder, "memsim_exec", events.Run())
	a.exec.Start(os.Args)
	a.exec.Set("Config", fmt.Sprintf("%+v", a.cfg))
}

// stopRecording marks the end of the run and closes the database. It does
// nothing when the run is not recorded or the recording is already closed.
func (a *app) stopRecording() error {
	if a.recorder == nil {
		return nil
	}

	a.exec.End()
	err := a.recorder.Close()
	a.recorder = nil

	return err
}

// attach connects a simulator to the hooks and the monitor of the run.
func (a *app) attach(s monitoring.Simulator) {
	for _, h := range a.hooks {
		s.AcceptHook(h)
	}

	if a.monitor != nil {
		a.monitor.RegisterSimulator(s)
	}
}

// exclusive runs fn so that the monitor does not read the simulators in the
// middle of an operation.
func (a *app) exclusive(fn func()) {
	if a.monitor == nil {
		fn()
		return
	}

	a.monitor.Exclusive(fn)
}

func waitForInterrupt() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	signal.Stop(c)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	return t
}

func banner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n========== %s ==========\n", title)
}
