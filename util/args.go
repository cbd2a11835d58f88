package util

import "strings"

// KeywordArgs parses command line arguments of the form key=value. A bare
// argument is stored under the empty key; the last one wins.
func KeywordArgs(args []string) map[string]string {
	ret := make(map[string]string, len(args))
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok {
			ret[k] = v
		} else {
			ret[""] = arg
		}
	}
	return ret
}
