package config

import "os"

// ExpandEnv expands ${VAR} and $VAR references in YAML content using Go's
// standard library, so secrets (database DSNs, redis passwords) never need
// to be written literally into a committed manifest. Missing variables
// expand to the empty string; Load's validation covers only the
// observability settings, so an empty expansion elsewhere is not reported.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
