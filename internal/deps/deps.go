// Package deps reports whether the external tools voxnote shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary voxnote relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// Alternatives are tried in order when Command is not on PATH.
	Alternatives []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	for _, candidate := range append([]string{cmd}, req.Alternatives...) {
		if resolved, err := exec.LookPath(candidate); err == nil {
			status.Command = resolved
			status.Available = true
			return status
		}
	}
	status.Detail = fmt.Sprintf("binary %q not found", cmd)
	return status
}
