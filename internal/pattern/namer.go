package pattern

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Namer guarantees unique filenames within one export batch without
// touching the filesystem. A duplicate candidate gets the first free
// numeric suffix inserted before its extension.
type Namer struct {
	used map[string]bool
}

// NewNamer creates an empty batch namer.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]bool)}
}

// Unique reserves and returns a batch-unique name for the candidate:
// "a.pdf", then "a-1.pdf", "a-2.pdf", and so on.
func (n *Namer) Unique(candidate string) string {
	if !n.used[candidate] {
		n.used[candidate] = true
		return candidate
	}
	ext := filepath.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}
