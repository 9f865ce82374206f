package cache

import "strings"

// Key builds a deterministic cache key from a platform name and identity
// parts. Format: dash:<platform>:<part1>:<part2>
//
// Example:
//
//	dash:steam:76561198000000000
func Key(platform string, parts ...string) string {
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, "dash", platform)
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			elems = append(elems, part)
		}
	}
	return strings.Join(elems, ":")
}
