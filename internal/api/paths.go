package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validateMapPath checks that a client-supplied map file path stays inside
// one of the configured map directories. With no directories configured only
// the working directory is allowed. This keeps the sessions endpoint from
// being used to read arbitrary files.
func (s *Server) validateMapPath(path string) error {
	dirs := s.cfg.Server.MapDirs
	if len(dirs) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		dirs = []string{cwd}
	}

	for _, dir := range dirs {
		if err := pathWithinDirectory(path, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("map path must be inside one of the configured map directories")
}

// pathWithinDirectory rejects paths that resolve outside dir, including
// escapes through symlinks. The file must exist; maps are loaded, never
// created, through this route.
func pathWithinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving directory: %w", err)
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolving directory %s: %w", dir, err)
	}

	rel, err := filepath.Rel(canonicalDir, canonical)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes %s", path, dir)
	}
	return nil
}
