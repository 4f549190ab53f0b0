// Command kernel is the boot entry point: it wires together every
// component of the execution-and-memory substrate in the order spec.md
// §2 lays out. It first installs the real IRQController and the
// kernel.Panic/Shutdown hardware hooks (see hardware.go), since every
// other package's SpinlockIRQSave and error path depends on those being
// live; then F detects CPU features; A+B+C+D (via mm.Init, which also
// takes E's first heap region) stand up the memory manager; G brings up
// the GDT and, per core, a TSS whose backing storage and IST stacks are
// allocated through D; H calibrates the TSC frequency; then I and J (the
// scheduler and semaphore) become usable to the rest of the kernel.
//
// Mirrors the boot sequencing of
// _examples/iansmith-mazarin/src/go/mazarin/kernel.go (detect hardware,
// bring up each subsystem in dependency order, then hand off to the
// scheduler) adapted from a single-board ARM UART/GIC bring-up to this
// x86-64 memory/execution substrate.
package main

import (
	"github.com/hermitgo/kernel/internal/boothdr"
	"github.com/hermitgo/kernel/internal/config"
	"github.com/hermitgo/kernel/internal/cpu"
	"github.com/hermitgo/kernel/internal/freq"
	"github.com/hermitgo/kernel/internal/gdt"
	"github.com/hermitgo/kernel/internal/irqlock"
	"github.com/hermitgo/kernel/internal/kernel"
	"github.com/hermitgo/kernel/internal/klog"
	"github.com/hermitgo/kernel/internal/kmsg"
	"github.com/hermitgo/kernel/internal/mm"
	"github.com/hermitgo/kernel/internal/mm/pagetable"
	"github.com/hermitgo/kernel/internal/sched"
	"github.com/hermitgo/kernel/internal/semaphore"
)

// kmsgBuffer is the single process-wide kernel message ring, placed in
// the .kmsg section on real hardware (spec.md §6); on the host build it
// is simply a package-level value.
var kmsgBuffer kmsg.Buffer

// bootCommandLine, bootTotalMemory, bootImageStart, and bootHeaderAddr
// stand in for values a real loader places in memory or passes on the
// command line before jumping to the kernel. spec.md's boot header only
// models CurrentStackAddress/CPUFreq/ImageSize; total installed memory,
// the image's load address, and the command line arrive through other
// loader-owned channels this substrate doesn't otherwise need to parse.
var (
	bootCommandLine = ""
	bootTotalMemory = uint64(0)
	bootImageStart  = uint64(0)
	bootHeaderAddr  = uintptr(0)
)

func main() {
	boot()
}

// boot runs the dependency-ordered bring-up spec.md §2 describes and
// then parks core 0's idle task. It never returns on real hardware.
func boot() {
	// Wire the real hardware primitives before anything else runs: every
	// SpinlockIRQSave and every kernel.Panic/Shutdown call from this point
	// on goes through real interrupt-mask/ACPI/halt instructions instead
	// of the no-op defaults a host `go test` binary uses.
	irqlock.SetController(irqlock.HardwareController{})
	kernel.SetPowerOffHook(acpiPowerOff)
	kernel.SetHaltHook(haltLoop)

	klog.Init(&kmsgBuffer)
	klog.Puts("booting\n")

	header := boothdr.NewView(bootHeaderAddr)

	// F: detect and configure CPU features.
	detector := cpu.NewDetector(cpu.HardwareCPUID{})
	features := detector.Detect()
	cpu.Configure(features, cpu.HardwareMSR{}, cpu.HardwareRegisters{})

	// A+B+C+D (D hands off to E for its first heap region): bring up the
	// memory manager and kernel heap.
	memory, err := mm.Init(mm.InitConfig{
		ImageStart:        bootImageStart,
		ImageSize:         header.ImageSize(),
		TotalMemory:       bootTotalMemory,
		Supports1GiBPages: features.Supports1GiBPages,
		Mem:               pagetable.Identity{},
	})
	if err != nil {
		// mm.Init has already called kernel.Panic for
		// ErrInsufficientMemory; every other failure is reported here.
		if err != mm.ErrInsufficientMemory {
			kernel.Panic("mm: " + err.Error())
		}
		return
	}
	klog.Puts("heap: 0x")
	klog.PutHex64(memory.HeapStartAddress())
	klog.Puts(" - 0x")
	klog.PutHex64(memory.HeapEndAddress())
	klog.Puts("\n")

	// G: bring up the GDT and core 0's TSS, allocating the table and the
	// TSS/IST stacks through D.
	table := gdt.New(gdt.Raw{}, memory, gdt.HardwareSegments{})
	if err := table.Init(); err != nil {
		kernel.Panic("gdt: " + err.Error())
		return
	}
	if err := table.AddCurrentCore(0, header.CurrentStackAddress(), config.KernelStackSize); err != nil {
		kernel.Panic("gdt: " + err.Error())
		return
	}

	// H: calibrate the TSC frequency.
	mhz, source, err := freq.Detect(freq.DetectConfig{
		HypervisorCPUFreqMHz: header.CPUFreq(),
		CommandLine:          bootCommandLine,
		BrandString:          features.BrandString,
		IsHypervisorGuest:    features.HypervisorVendor == "uhyve",
		Timer:                freq.HardwarePIT{},
		Clock:                cpu.NewClock(features.HasRDTSCP),
	})
	if err != nil {
		kernel.Panic("freq: " + err.Error())
		return
	}
	klog.Puts("cpu frequency: ")
	klog.PutUint(uint64(mhz))
	klog.Puts(" MHz (")
	klog.Puts(source.String())
	klog.Puts(")\n")

	// I: bring up core 0's scheduler and idle task.
	registry := sched.NewRegistry()
	scheduler := sched.NewScheduler(0)
	registry.Register(scheduler)
	idle := sched.NewTask(0, 0, 0, header.CurrentStackAddress())
	scheduler.SetCurrentTask(idle)

	// J: semaphores are now usable by the rest of the kernel.
	_ = semaphore.New(1, registry)

	klog.Puts("boot complete\n")
	kernel.Shutdown()
}
