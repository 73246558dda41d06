package builtin

import (
	"fmt"
	"os"
)

// cdCmd changes the working directory and maintains PWD/OLDPWD. "cd -"
// returns to OLDPWD and prints it.
func cdCmd(ctx *Context, args []string) int {
	if len(args) > 1 {
		ctx.errorf("cd", "too many arguments")
		return 2
	}

	var target string
	printTarget := false
	switch {
	case len(args) == 0:
		home, ok := ctx.Shell.GetVar("HOME")
		if !ok || home == "" {
			ctx.errorf("cd", "HOME not set")
			return 1
		}
		target = home
	case args[0] == "-":
		old, ok := ctx.Shell.GetVar("OLDPWD")
		if !ok || old == "" {
			ctx.errorf("cd", "OLDPWD not set")
			return 1
		}
		target = old
		printTarget = true
	default:
		target = args[0]
	}

	oldpwd, _ := os.Getwd()
	if err := os.Chdir(target); err != nil {
		ctx.errorf("cd", "%s: %v", target, err)
		return 1
	}
	pwd, err := os.Getwd()
	if err != nil {
		pwd = target
	}

	ctx.Shell.SetVar("OLDPWD", oldpwd, true)
	ctx.Shell.SetVar("PWD", pwd, true)
	if printTarget {
		fmt.Fprintln(ctx.Stdio.Out, pwd)
	}
	return 0
}
