// Package freq implements spec.md §4.H: determine the CPU's frequency in
// MHz by trying, in order, the hypervisor-supplied boot header value, a
// command-line override, the CPUID brand string, and finally a PIT-based
// measurement — refusing the measurement step under a hypervisor whose
// PIC isn't initialized (uhyve). Grounded on
// original_source/src/arch/x86_64/kernel/processor.rs's CpuFrequency
// detect()/measure_frequency.
package freq

import (
	"errors"

	"github.com/hermitgo/kernel/internal/cmdline"
	"github.com/hermitgo/kernel/internal/cpu"
)

// Source names which of the four detection strategies produced the
// result, for diagnostic logging (processor.rs's CpuFrequencySources).
type Source int

const (
	SourceInvalid Source = iota
	SourceHypervisor
	SourceCommandLine
	SourceBrandString
	SourceMeasurement
)

func (s Source) String() string {
	switch s {
	case SourceHypervisor:
		return "Hypervisor"
	case SourceCommandLine:
		return "Command Line"
	case SourceBrandString:
		return "CPUID Brand String"
	case SourceMeasurement:
		return "Measurement"
	default:
		return "Invalid"
	}
}

// ErrUndetectable is returned when every detection strategy failed,
// including a refused PIT measurement under uhyve.
var ErrUndetectable = errors.New("freq: could not determine the processor frequency")

// Timer is the PIT abstraction measureFrequency drives: Init arms it at
// frequencyHz, Ticks reads the cumulative interrupt count an ISR
// maintains, and Deinit disarms it. The production implementation talks
// to real PIT hardware; tests use a deterministic fake.
type Timer interface {
	Init(frequencyHz uint32)
	Deinit()
	Ticks() uint64
}

// Clock reads a monotonically increasing cycle counter (internal/cpu.Clock
// in production).
type Clock interface {
	Now() uint64
}

// DetectConfig supplies every source Detect may consult.
type DetectConfig struct {
	// HypervisorCPUFreqMHz is the boot header's cpu_freq field; 0 means
	// the hypervisor didn't supply one (spec.md §8 scenario S5).
	HypervisorCPUFreqMHz uint32
	CommandLine          string
	BrandString          string
	// IsHypervisorGuest disables the PIT measurement fallback. Boot sets
	// it when running under uhyve: there the PIC is never initialized, so
	// no interrupt would ever arrive to advance Ticks.
	IsHypervisorGuest bool
	Timer             Timer
	Clock             Clock
}

// Detect tries each source in order and returns the first success.
func Detect(cfg DetectConfig) (mhz uint16, source Source, err error) {
	if cfg.HypervisorCPUFreqMHz > 0 {
		return uint16(cfg.HypervisorCPUFreqMHz), SourceHypervisor, nil
	}
	if m, ok := cmdline.CPUFrequencyMHz(cfg.CommandLine); ok {
		return m, SourceCommandLine, nil
	}
	if m, ok := cpu.BrandStringMHz(cfg.BrandString); ok {
		return m, SourceBrandString, nil
	}
	if cfg.IsHypervisorGuest {
		return 0, SourceInvalid, ErrUndetectable
	}

	m, err := measureFrequency(cfg.Timer, cfg.Clock)
	if err != nil {
		return 0, SourceInvalid, err
	}
	return m, SourceMeasurement, nil
}

const (
	measurementTickCount       = 3
	measurementFrequencyHz     = 100
	microsecondsPerSecond uint64 = 1_000_000
)

// measureFrequency counts CPU cycles across measurementTickCount PIT
// ticks at measurementFrequencyHz and derives a MHz value, exactly as
// processor.rs's measure_frequency does.
func measureFrequency(t Timer, clock Clock) (uint16, error) {
	t.Init(measurementFrequencyHz)
	defer t.Deinit()

	first := t.Ticks()
	var startTick uint64
	for {
		tick := t.Ticks()
		if tick != first {
			startTick = tick
			break
		}
	}

	start := clock.Now()
	for {
		tick := t.Ticks()
		if tick-startTick >= measurementTickCount {
			break
		}
	}
	end := clock.Now()

	return mhzFromCycles(end - start), nil
}

func mhzFromCycles(cycles uint64) uint16 {
	return uint16(measurementFrequencyHz * cycles / (microsecondsPerSecond * measurementTickCount))
}
