package builtin

import "fmt"

// jobsCmd lists the job table. -l adds the pid column, -p prints only
// the process-group ids.
func jobsCmd(ctx *Context, args []string) int {
	var long, pidsOnly bool
	for _, arg := range args {
		if len(arg) < 2 || arg[0] != '-' {
			ctx.errorf("jobs", "usage: jobs [-l] [-p]")
			return 2
		}
		for _, f := range arg[1:] {
			switch f {
			case 'l':
				long = true
			case 'p':
				pidsOnly = true
			default:
				ctx.errorf("jobs", "-%c: invalid option", f)
				return 2
			}
		}
	}

	table := ctx.Shell.JobTable()
	for _, j := range table.Jobs() {
		if pidsOnly {
			fmt.Fprintln(ctx.Stdio.Out, j.PGID)
			continue
		}
		fmt.Fprintln(ctx.Stdio.Out, table.FormatLine(j, long))
	}
	return 0
}
