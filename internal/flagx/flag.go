// Package flagx lets several configuration layers share os.Args: each layer
// picks out only the flags it owns before handing them to a flag.FlagSet.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps the flags listed in allowed, together with their values.
// Both "-k value" and "-k=value" forms are recognised. A token following an
// allowed flag is treated as its value unless it starts with "-".
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		keep[f] = true
	}

	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if name, _, ok := strings.Cut(arg, "="); ok {
				if keep[name] {
					out = append(out, arg)
				}
				continue
			}
		}

		if !keep[arg] {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigPath returns the value of -c / -config in args, or "" when absent.
// When both are given the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
