package builtin

import (
	"fmt"
	"sort"
	"strings"
)

// aliasCmd lists or defines aliases. Definitions take the form
// name=value; a bare name prints its definition.
func aliasCmd(ctx *Context, args []string) int {
	if len(args) == 0 {
		names := make([]string, 0)
		all := ctx.Shell.Aliases()
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(ctx.Stdio.Out, "alias %s='%s'\n", name, all[name])
		}
		return 0
	}

	code := 0
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if ok {
			ctx.Shell.SetAlias(name, value)
			continue
		}
		if value, found := ctx.Shell.Aliases()[name]; found {
			fmt.Fprintf(ctx.Stdio.Out, "alias %s='%s'\n", name, value)
		} else {
			ctx.errorf("alias", "%s: not found", name)
			code = 1
		}
	}
	return code
}

// unaliasCmd removes alias definitions.
func unaliasCmd(ctx *Context, args []string) int {
	if len(args) == 0 {
		ctx.errorf("unalias", "usage: unalias name ...")
		return 2
	}
	code := 0
	for _, name := range args {
		if _, ok := ctx.Shell.Aliases()[name]; !ok {
			ctx.errorf("unalias", "%s: not found", name)
			code = 1
			continue
		}
		ctx.Shell.RemoveAlias(name)
	}
	return code
}
