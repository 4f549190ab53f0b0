// Package cmdline provides the tiny kernel command-line token scanner
// used by internal/freq's "command line" frequency source (spec.md §4.H).
//
// There is no flag package available this early: the loader hands the
// kernel a raw string, not argv, and flag assumes an os.Args/os.Exit
// environment this kernel does not have. Following the teacher's idiom of
// parsing fixed memory blobs by hand (src/go/mazarin/page.go's ATAG walk),
// this is a handwritten `--key=value` scanner over a plain string.
package cmdline

import "strconv"

// CPUFrequencyMHz scans line for a "--freq=<mhz>" token and returns the
// parsed value. ok is false if the token is absent, malformed, or parses
// to zero: the original source (processor.rs's detect_from_cmdline) only
// treats a strictly positive value as a present override, so "--freq=0"
// falls through to the next source exactly like an absent token (see
// spec.md §8 scenario S5).
func CPUFrequencyMHz(line string) (mhz uint16, ok bool) {
	const key = "--freq="
	idx := indexOf(line, key)
	if idx < 0 {
		return 0, false
	}

	start := idx + len(key)
	end := start
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}

	v, err := strconv.ParseUint(line[start:end], 10, 16)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint16(v), true
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}
