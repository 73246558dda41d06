package builtin

import "fmt"

// fgCmd brings the target job (default: current) into the foreground
// and exits with the job's status.
func fgCmd(ctx *Context, args []string) int {
	if !ctx.Shell.Interactive() {
		ctx.errorf("fg", "no job control")
		return 1
	}
	if len(args) > 1 {
		ctx.errorf("fg", "usage: fg [jobspec]")
		return 2
	}

	spec := ""
	if len(args) == 1 {
		spec = args[0]
	}
	j, err := ctx.Shell.JobTable().Find(spec)
	if err != nil {
		ctx.errorf("fg", "%v", err)
		return 1
	}

	fmt.Fprintln(ctx.Stdio.Out, j.Display())
	return ctx.Shell.Foreground(j)
}
