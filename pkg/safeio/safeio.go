package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideBase is returned when a path resolves outside the directory it was discovered under.
var ErrOutsideBase = errors.New("file path is outside base directory")

// DisplayPath cleans p and returns it with forward slashes, so report paths compare equally across platforms.
func DisplayPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// ReadFileContained reads a file only if it resolves inside baseDir.
// Symlinks are resolved first so a link inside a walked tree cannot pull in files from elsewhere.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseAbs, err := resolve(baseDir)
	if err != nil {
		return nil, errors.New("failed to resolve base directory")
	}
	fileAbs, err := resolve(filePath)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(baseAbs, fileAbs)
	if err != nil {
		return nil, errors.New("failed to compute relative path")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ErrOutsideBase
	}

	// #nosec G304 -- fileAbs has been verified to be contained within baseAbs
	return os.ReadFile(fileAbs)
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// When the file does not exist, it uses a sane default of 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		if st.IsDir() {
			return &os.PathError{Op: "write", Path: path, Err: errors.New("is a directory")}
		}
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	return os.WriteFile(path, data, mode)
}
