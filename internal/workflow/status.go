package workflow

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"voxnote/internal/ledger"
	"voxnote/internal/services"
)

// Status is a snapshot of pending input and produced notes.
type Status struct {
	Pending []string
	Notes   int
	Ledger  ledger.Counts
}

// Status lists supported recordings waiting in input/, counts markdown notes
// under output/, and reads ledger totals.
func (w *Workflow) Status() (Status, error) {
	var st Status
	pending, err := w.inputFiles("")
	if err != nil {
		return st, err
	}
	st.Pending = pending

	err = filepath.WalkDir(w.cfg.Paths.Output, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			st.Notes++
		}
		return nil
	})
	if err != nil {
		return st, services.Wrap(services.ErrValidation, "status", "scan output", w.cfg.Paths.Output, err)
	}

	counts, err := w.ledger.Counts()
	if err != nil {
		return st, err
	}
	st.Ledger = counts
	return st, nil
}
