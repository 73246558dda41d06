package builtin

import "strings"

// exportCmd marks variables for the child environment, optionally
// assigning them first.
func exportCmd(ctx *Context, args []string) int {
	if len(args) == 0 {
		ctx.errorf("export", "usage: export name[=value] ...")
		return 2
	}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			if current, found := ctx.Shell.GetVar(name); found {
				ctx.Shell.SetVar(name, current, true)
			} else {
				ctx.Shell.SetVar(name, "", true)
			}
			continue
		}
		ctx.Shell.SetVar(name, value, true)
	}
	return 0
}
