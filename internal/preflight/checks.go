package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"voxnote/internal/config"
	"voxnote/internal/services/llm"
)

// CheckOllama verifies the chat service answers /api/tags and has the
// configured model pulled.
func CheckOllama(ctx context.Context, cfg config.LLM) Result {
	const name = "Ollama"
	if strings.TrimSpace(cfg.Model) == "" {
		return Result{Name: name, Detail: "llm.model is not set"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		ChatTimeout: 5 * time.Second,
	}, nil)
	models, err := client.Models(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable: %s; start it with `ollama serve`", client.BaseURL(), summarizeError(err))}
	}
	if !llm.HasModel(models, cfg.Model) {
		return Result{Name: name, Detail: fmt.Sprintf("model %q not pulled; run `ollama pull %s`", cfg.Model, cfg.Model)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", client.BaseURL(), cfg.Model)}
}

// CheckFile verifies that path is a readable regular file.
func CheckFile(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist; run `voxnote init`)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
