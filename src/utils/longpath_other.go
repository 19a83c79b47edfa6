//go:build !windows

package utils

// LongPath is the identity outside Windows
func LongPath(p string) string {
	return p
}
