// Package flagx holds the small helpers every docseal binary uses to
// assemble its configuration: filtering os.Args down to the flags one layer
// understands, locating the optional JSON config file, and overlaying
// DOCSEAL_* environment variables (optionally seeded from a .env file).
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags listed in allowedFlags, together with their
// values. Both "-f value" and "-f=value" forms are recognised. A token that
// starts with "-" is never consumed as a value.
//
// The result is never nil, so it can be passed straight to FlagSet.Parse.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags returns the config file path given with -c or -config,
// or an empty string when neither is present. Other flags are ignored so the
// caller can still parse its own flag set afterwards.
func JsonConfigFlags() string {
	return configFileFrom(os.Args[1:])
}

func configFileFrom(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
