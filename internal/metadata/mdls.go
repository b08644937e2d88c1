package metadata

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

var errNoMdls = errors.New("mdls not available")

// runMdls runs mdls and parses its "key = value" listing. Array values become
// []any of their elements and (null) values are omitted.
func runMdls(ctx context.Context, binary, path string) (map[string]any, error) {
	resolved, err := lookPath(binary)
	if err != nil {
		return nil, errNoMdls
	}
	out, err := exec.CommandContext(ctx, resolved, path).Output() //nolint:gosec
	if err != nil {
		return nil, err
	}
	return parseMdls(out), nil
}

func parseMdls(out []byte) map[string]any {
	result := make(map[string]any)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	var (
		arrayKey string
		array    []any
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if arrayKey != "" {
			if line == ")" {
				result[arrayKey] = array
				arrayKey, array = "", nil
				continue
			}
			array = append(array, mdlsScalar(strings.TrimSuffix(line, ",")))
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch value {
		case "(null)":
			continue
		case "(":
			arrayKey, array = key, []any{}
			continue
		}
		result[key] = mdlsScalar(value)
	}
	return result
}

func mdlsScalar(value string) any {
	value = strings.TrimSpace(value)
	if unquoted, err := strconv.Unquote(value); err == nil {
		return unquoted
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}
