package freq

import "testing"

func TestDetectPrefersHypervisorOverEverythingElse(t *testing.T) {
	mhz, src, err := Detect(DetectConfig{
		HypervisorCPUFreqMHz: 2800,
		CommandLine:          "--freq=3400",
		BrandString:          "CPU @ 3.70GHz",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if mhz != 2800 || src != SourceHypervisor {
		t.Fatalf("mhz=%d src=%v, want 2800/Hypervisor", mhz, src)
	}
}

func TestDetectFallsBackToCommandLine(t *testing.T) {
	mhz, src, err := Detect(DetectConfig{
		CommandLine: "--freq=3400",
		BrandString: "CPU @ 3.70GHz",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if mhz != 3400 || src != SourceCommandLine {
		t.Fatalf("mhz=%d src=%v, want 3400/CommandLine", mhz, src)
	}
}

func TestDetectTreatsExplicitZeroCommandLineAsAbsent(t *testing.T) {
	mhz, src, err := Detect(DetectConfig{
		CommandLine: "--freq=0",
		BrandString: "CPU @ 3.40GHz",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if mhz != 3400 || src != SourceBrandString {
		t.Fatalf("mhz=%d src=%v, want 3400/BrandString (scenario S5)", mhz, src)
	}
}

func TestDetectFallsBackToBrandString(t *testing.T) {
	mhz, src, err := Detect(DetectConfig{
		BrandString: "Some CPU @ 3.70GHz",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if mhz != 3700 || src != SourceBrandString {
		t.Fatalf("mhz=%d src=%v, want 3700/BrandString", mhz, src)
	}
}

func TestDetectRefusesMeasurementUnderHypervisorGuest(t *testing.T) {
	_, _, err := Detect(DetectConfig{IsHypervisorGuest: true})
	if err != ErrUndetectable {
		t.Fatalf("err = %v, want ErrUndetectable", err)
	}
}

func TestDetectFallsBackToMeasurement(t *testing.T) {
	timer := &FakeTimer{CallsPerTick: 1}
	clock := &FakeClock{Step: 102_000_000}

	mhz, src, err := Detect(DetectConfig{
		Timer: timer,
		Clock: clock,
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if src != SourceMeasurement {
		t.Fatalf("src = %v, want Measurement", src)
	}
	if mhz != 3400 {
		t.Fatalf("mhz = %d, want 3400", mhz)
	}
}

func TestMhzFromCyclesExactDivision(t *testing.T) {
	if got := mhzFromCycles(102_000_000); got != 3400 {
		t.Fatalf("mhzFromCycles = %d, want 3400", got)
	}
}
