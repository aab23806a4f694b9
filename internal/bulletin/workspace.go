package bulletin

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const fileDateLayout = "20060102" // YYYYMMDD, as used by the exchange in file names

// Workspace is a scoped temporary directory holding the bulletins downloaded by one run.
// Everything inside it is removed by Cleanup.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under base (os.TempDir() when base is empty).
func NewWorkspace(base string) (*Workspace, error) {
	dir, err := os.MkdirTemp(base, "spimex-bulletins-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// PathFor returns where the bulletin for the given trade date is stored.
func (w *Workspace) PathFor(date time.Time) string {
	return filepath.Join(w.dir, date.Format(fileDateLayout)+"_oil_data.xls")
}

// Cleanup removes the workspace and every file in it. Safe to call more than once.
func (w *Workspace) Cleanup() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("cleanup workspace %s: %w", w.dir, err)
	}
	return nil
}
