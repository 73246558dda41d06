package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/sys"
)

const killUsage = "usage: kill [-s name | -n num | -signame] pid|%%job ... | kill -l"

// killCmd resolves the signal to send (default SIGTERM) and delivers
// it to each pid or %job operand. A leading -NAME or -NUM operand
// selects the signal; any later operand beginning with '-' is an
// error.
func killCmd(ctx *Context, args []string) int {
	if len(args) == 0 {
		ctx.errorf("kill", killUsage)
		return 2
	}
	if args[0] == "-l" {
		printSignalTable(ctx)
		return 0
	}

	sig := unix.SIGTERM
	i := 0
	switch {
	case args[0] == "-s" || args[0] == "-n":
		if len(args) < 2 {
			ctx.errorf("kill", "%s: option requires an argument", args[0])
			return 2
		}
		s, err := sys.SignalByName(args[1])
		if err != nil {
			ctx.errorf("kill", "%v", err)
			return 1
		}
		sig = s
		i = 2
	case strings.HasPrefix(args[0], "-"):
		s, err := sys.SignalByName(args[0][1:])
		if err != nil {
			ctx.errorf("kill", "%v", err)
			return 1
		}
		sig = s
		i = 1
	}

	if i >= len(args) {
		ctx.errorf("kill", killUsage)
		return 2
	}

	code := 0
	for _, operand := range args[i:] {
		if err := killOne(ctx, operand, sig); err != nil {
			ctx.errorf("kill", "%s: %v", operand, err)
			code = 1
		}
	}
	return code
}

func killOne(ctx *Context, operand string, sig unix.Signal) error {
	if strings.HasPrefix(operand, "%") {
		j, err := ctx.Shell.JobTable().Find(operand)
		if err != nil {
			return err
		}
		return ctx.Shell.SignalJob(j, sig, true)
	}

	pid, err := strconv.Atoi(operand)
	if err != nil || pid <= 0 {
		return fmt.Errorf("arguments must be process or job IDs")
	}
	return sys.Kill(pid, sig)
}

func printSignalTable(ctx *Context) {
	sigs := sys.SignalTable()
	for i, sig := range sigs {
		fmt.Fprintf(ctx.Stdio.Out, "%2d) SIG%-9s", int(sig), sys.SignalName(sig))
		if (i+1)%4 == 0 || i == len(sigs)-1 {
			fmt.Fprintln(ctx.Stdio.Out)
		}
	}
}
