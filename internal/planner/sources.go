package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"voxnote/internal/config"
)

// RecursiveMode is the --recursive-mode flag value of collect.
type RecursiveMode string

const (
	RecursiveAuto RecursiveMode = "auto"
	RecursiveOn   RecursiveMode = "on"
	RecursiveOff  RecursiveMode = "off"
)

// ParseRecursiveMode validates a flag value. Empty means auto.
func ParseRecursiveMode(value string) (RecursiveMode, error) {
	switch RecursiveMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", RecursiveAuto:
		return RecursiveAuto, nil
	case RecursiveOn:
		return RecursiveOn, nil
	case RecursiveOff:
		return RecursiveOff, nil
	default:
		return "", fmt.Errorf("recursive mode must be auto, on, or off (got %q)", value)
	}
}

// Reason records which setting decided a source's recursion.
type Reason string

const (
	ReasonCLI     Reason = "cli"
	ReasonConfig  Reason = "config"
	ReasonDefault Reason = "default"
)

// SourcePlan is one directory collect will scan.
type SourcePlan struct {
	Dir       string `json:"dir"`
	Recursive bool   `json:"recursive"`
	Reason    Reason `json:"reason"`
}

// BuildSourcePlan resolves the directories to scan. CLI sources replace the
// configured list. Recursion comes from an explicit on/off mode, then the
// matching configured source, then collect.recursive_default.
func BuildSourcePlan(cfg *config.Config, cliSources []string, mode RecursiveMode) ([]SourcePlan, error) {
	var dirs []string
	if len(cliSources) > 0 {
		for _, src := range cliSources {
			abs, err := config.ExpandPath(src)
			if err != nil {
				return nil, err
			}
			dirs = append(dirs, resolveDir(abs))
		}
	} else {
		for _, src := range cfg.Sources {
			dirs = append(dirs, resolveDir(src.Path))
		}
	}

	configured := make(map[string]config.Source, len(cfg.Sources))
	for _, src := range cfg.Sources {
		configured[resolveDir(src.Path)] = src
	}

	plan := make([]SourcePlan, 0, len(dirs))
	for _, dir := range dirs {
		entry := SourcePlan{Dir: dir}
		switch src, ok := configured[dir]; {
		case mode == RecursiveOn || mode == RecursiveOff:
			entry.Recursive, entry.Reason = mode == RecursiveOn, ReasonCLI
		case ok:
			entry.Recursive, entry.Reason = src.Recursive, ReasonConfig
		default:
			entry.Recursive, entry.Reason = cfg.Collect.RecursiveDefault, ReasonDefault
		}
		plan = append(plan, entry)
	}
	return plan, nil
}

func resolveDir(path string) string {
	clean := filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		return resolved
	}
	return clean
}
