package builder

import (
	"path/filepath"
	"strings"
)

// ReasonOutsideRoot is the reason attached to items whose destination would
// escape the output root.
const ReasonOutsideRoot = "goes outside of the static directory"

// containedIn reports whether path is a strict descendant of root. Any
// remaining parent-directory sequence rejects, even when it would resolve
// back inside. Every write-producing operation validates its fully resolved
// destination through this check.
func containedIn(root, path string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
