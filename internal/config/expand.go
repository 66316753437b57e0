package config

import (
	"os"
	"regexp"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} references with environment values. Bare $VAR is left alone
// so header values containing a literal dollar sign survive.
func ExpandEnv(s string) string {
	if s == "" {
		return s
	}
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRefPattern.FindStringSubmatch(ref)[1])
	})
}
