package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
)

// FileReaderName is the registered name of the file reader tool.
const FileReaderName = "file_reader"

const defaultMaxFileSize = 10 * 1024 * 1024

// FileReader returns a tool that reads text files below cfg.Root whose
// root-relative path matches one of cfg.AllowedGlobs.
func FileReader(cfg config.FileReaderConfig) Tool {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	globs := cfg.AllowedGlobs

	return Tool{
		Descriptor: Descriptor{
			Name:        FileReaderName,
			Description: fmt.Sprintf("Read the content of a text file (allowed: %s).", strings.Join(globs, ", ")),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{
						"type":        "string",
						"description": "Path of the file, relative to the working directory",
						"minLength":   1,
					},
				},
				"required":             []string{"file_path"},
				"additionalProperties": false,
			},
			Keywords: []string{"read", "open", "document", "load", "txt", "csv", "markdown"},
		},
		Exec: func(_ context.Context, args map[string]any) (string, error) {
			path, _ := args["file_path"].(string)
			return readAllowedFile(root, globs, maxSize, path)
		},
	}
}

func readAllowedFile(root string, globs []string, maxSize int64, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = filepath.Clean(target)

	if _, err := os.Lstat(target); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", path, err)
	}

	rel, err := filepath.Rel(absRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the allowed root", path)
	}
	if !matchesAny(globs, filepath.ToSlash(rel)) {
		return "", fmt.Errorf("path %s does not match the allowed patterns", path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("path is not a file: %s", path)
	}
	if info.Size() > maxSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxSize)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func matchesAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}
