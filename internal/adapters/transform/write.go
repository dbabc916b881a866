package transform

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// writeFile atomically replaces path with data.
func writeFile(path string, data []byte) error {
	return writeFrom(path, bytes.NewReader(data))
}

// writeFrom streams r into a temporary sibling of path and renames it into place, so readers
// such as the development server never observe a partial file.
func writeFrom(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return writeError(err, path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return writeError(err, path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return writeError(err, path)
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		_ = tmp.Close()
		return writeError(err, path)
	}
	if err := tmp.Close(); err != nil {
		return writeError(err, path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return writeError(err, path)
	}
	return nil
}

func writeError(err error, path string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrDestinationWriteFailed.Error()), "path", path)
}

func readError(err error, path string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrSourceReadFailed.Error()), "path", path)
}

// sourceMapComment returns the trailer linking a file to its external map.
func sourceMapComment(output string, css bool) string {
	name := filepath.Base(output) + ".map"
	if css {
		return "\n/*# sourceMappingURL=" + name + " */\n"
	}
	return "\n//# sourceMappingURL=" + name + "\n"
}

// relativeSource returns the path of input as seen from the directory of output, for source maps.
func relativeSource(input, output string) string {
	rel, err := filepath.Rel(filepath.Dir(output), input)
	if err != nil {
		return filepath.Base(input)
	}
	return filepath.ToSlash(rel)
}
