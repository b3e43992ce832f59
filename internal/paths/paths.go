// Package paths normalizes file paths recorded in session logs.
package paths

import (
	"path/filepath"
	"strings"
)

// MakeProjectRelative rewrites an absolute path under the project root so it
// is relative to that root, with the leading separator stripped. Paths outside
// the root pass through unchanged.
func MakeProjectRelative(filePath, projectRoot string) string {
	root := strings.TrimRight(projectRoot, "/")
	if root != "" && strings.HasPrefix(filePath, root) {
		return strings.TrimLeft(filePath[len(root):], "/")
	}
	return filePath
}

// NormalizePath converts backslashes to forward slashes so paths compare
// consistently across platforms.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
