package util

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUser replaces a leading "~" or "~/" with the home directory. Other
// paths, including "~user/...", are returned unchanged.
func ExpandUser(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home := os.Getenv("HOME")
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return p
		}
	}
	return filepath.Join(home, p[1:])
}
