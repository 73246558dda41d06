package sys

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// maxSignal bounds the classic (non-realtime) signal range listed by
// kill -l.
const maxSignal = 31

// SignalByName resolves a signal name ("TERM", "SIGTERM", case
// insensitive) or decimal number to a signal.
func SignalByName(name string) (unix.Signal, error) {
	if n, err := strconv.Atoi(name); err == nil {
		if n <= 0 || n > maxSignal {
			return 0, fmt.Errorf("invalid signal number %d", n)
		}
		return unix.Signal(n), nil
	}

	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "SIG") {
		upper = "SIG" + upper
	}
	sig := unix.SignalNum(upper)
	if sig == 0 {
		return 0, fmt.Errorf("invalid signal name %q", name)
	}
	return unix.Signal(sig), nil
}

// SignalName returns the short name of sig ("TERM") or its decimal
// form when the name is unknown.
func SignalName(sig unix.Signal) string {
	name := unix.SignalName(sig)
	if name == "" {
		return strconv.Itoa(int(sig))
	}
	return strings.TrimPrefix(name, "SIG")
}

// SignalTable lists the classic signals in numeric order for kill -l.
func SignalTable() []unix.Signal {
	sigs := make([]unix.Signal, 0, maxSignal)
	for n := 1; n <= maxSignal; n++ {
		sigs = append(sigs, unix.Signal(n))
	}
	return sigs
}
