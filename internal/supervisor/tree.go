package supervisor

import (
	"slices"

	"github.com/prometheus/procfs"
)

// TreeSnapshotter lists a process and all of its descendants.
type TreeSnapshotter interface {
	Descendants(root int) ([]int, error)
}

// ProcfsTree walks /proc parent links.
type ProcfsTree struct {
	fs procfs.FS
}

// NewProcfsTree opens the default /proc mount.
func NewProcfsTree() (*ProcfsTree, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, err
	}
	return &ProcfsTree{fs: fs}, nil
}

// Descendants returns root followed by every live descendant, breadth first.
// Processes that vanish mid-scan are skipped.
func (t *ProcfsTree) Descendants(root int) ([]int, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, err
	}
	children := make(map[int][]int)
	for _, p := range procs {
		st, err := p.Stat()
		if err != nil {
			continue
		}
		children[st.PPID] = append(children[st.PPID], p.PID)
	}
	return walkTree(root, children), nil
}

func walkTree(root int, children map[int][]int) []int {
	out := []int{root}
	seen := map[int]bool{root: true}
	for i := 0; i < len(out); i++ {
		kids := children[out[i]]
		slices.Sort(kids)
		for _, k := range kids {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
