// Package config loads the parameters of the simulators from dotenv files and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the parameters of the reference scenarios.
type Config struct {
	NumPages    uint64
	NumFrames   uint64
	PageSize    uint64
	TLBSize     int
	TotalMemory uint64
	FIFOFrames  int
	Seed        int64

	// RecordPath is the database to record events into. Empty disables
	// recording.
	RecordPath string

	// MonitorPort is the port of the monitoring server. 0 disables it.
	MonitorPort int
}

// Default returns the parameters of the original lab programs.
func Default() Config {
	return Config{
		NumPages:    64,
		NumFrames:   32,
		PageSize:    1024,
		TLBSize:     8,
		TotalMemory: 1 << 20,
		FIFOFrames:  3,
		Seed:        1,
	}
}

// Load reads the dotenv files, then overrides the defaults with the MEMSIM_*
// variables of the environment. Variables already set in the environment win
// over the files. Missing files are skipped.
func Load(paths ...string) (Config, error) {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", p, err)
		}
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a configuration from a lookup function shaped like
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.uint64("MEMSIM_NUM_PAGES", &c.NumPages)
	p.uint64("MEMSIM_NUM_FRAMES", &c.NumFrames)
	p.uint64("MEMSIM_PAGE_SIZE", &c.PageSize)
	p.int("MEMSIM_TLB_SIZE", &c.TLBSize)
	p.uint64("MEMSIM_TOTAL_MEMORY", &c.TotalMemory)
	p.int("MEMSIM_FIFO_FRAMES", &c.FIFOFrames)
	p.int64("MEMSIM_SEED", &c.Seed)
	p.string("MEMSIM_RECORD", &c.RecordPath)
	p.int("MEMSIM_MONITOR_PORT", &c.MonitorPort)

	if p.err != nil {
		return Config{}, p.err
	}

	return c, c.Validate()
}

// Validate checks that every simulator can be built with the configuration.
func (c Config) Validate() error {
	switch {
	case c.NumPages == 0:
		return errors.New("the number of pages must be positive")
	case c.NumFrames == 0:
		return errors.New("the number of frames must be positive")
	case c.PageSize == 0:
		return errors.New("the page size must be positive")
	case c.TLBSize <= 0:
		return errors.New("the TLB size must be positive")
	case c.TotalMemory == 0:
		return errors.New("the total memory must be positive")
	case c.FIFOFrames <= 0:
		return errors.New("the number of FIFO frames must be positive")
	case c.MonitorPort < 0 || c.MonitorPort > 65535:
		return fmt.Errorf("invalid monitor port %d", c.MonitorPort)
	}

	return nil
}

// parser keeps the first error so that the variables can be read in a row.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(name string) (string, bool) {
	if p.err != nil {
		return "", false
	}

	v, ok := p.lookup(name)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}

func (p *parser) fail(name, value string, err error) {
	p.err = fmt.Errorf("invalid %s=%q: %w", name, value, err)
}

func (p *parser) uint64(name string, dst *uint64) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = n
}

func (p *parser) int64(name string, dst *int64) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = n
}

func (p *parser) int(name string, dst *int) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = n
}

func (p *parser) string(name string, dst *string) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	*dst = v
}
