package builtin

// bgCmd continues stopped jobs in the background. With no operands it
// targets the current job.
func bgCmd(ctx *Context, args []string) int {
	if !ctx.Shell.Interactive() {
		ctx.errorf("bg", "no job control")
		return 1
	}

	specs := args
	if len(specs) == 0 {
		specs = []string{""}
	}

	code := 0
	for _, spec := range specs {
		j, err := ctx.Shell.JobTable().Find(spec)
		if err != nil {
			ctx.errorf("bg", "%v", err)
			code = 1
			continue
		}
		if err := ctx.Shell.ContinueBackground(j); err != nil {
			ctx.errorf("bg", "%v", err)
			code = 1
		}
	}
	return code
}
