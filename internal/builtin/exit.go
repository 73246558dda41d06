package builtin

import "strconv"

// exitCmd requests shell termination, with an optional numeric status.
func exitCmd(ctx *Context, args []string) int {
	if len(args) > 1 {
		ctx.errorf("exit", "too many arguments")
		return 2
	}

	code := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			ctx.errorf("exit", "%s: numeric argument required", args[0])
			n = 2
		}
		code = n & 0xff
	}
	ctx.Shell.RequestExit(code)
	return code
}
