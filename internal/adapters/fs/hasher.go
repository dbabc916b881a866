package fs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// missingMarker stands in for the content hash of an extra input that no longer exists.
const missingMarker = "\x00missing"

// Hasher provides hashing functionality for jobs and files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeInputHash computes a single hash representing the job definition and the contents of
// its source, its satellites and the extra inputs a previous run reported.
// Extra inputs that have since disappeared change the hash instead of failing it.
func (h *Hasher) ComputeInputHash(job domain.Job, extra []string) (string, error) {
	hasher := xxhash.New()

	h.hashJobDefinition(job, hasher)

	if err := h.hashFile(job.Input, hasher); err != nil {
		return "", err
	}
	for _, satellite := range job.Satellites {
		if err := h.hashFile(satellite, hasher); err != nil {
			return "", err
		}
	}
	_, _ = hasher.Write([]byte{0})

	sortedExtra := slices.Clone(extra)
	slices.Sort(sortedExtra)
	for _, path := range slices.Compact(sortedExtra) {
		if path == job.Input || slices.Contains(job.Satellites, path) {
			continue
		}
		if err := h.hashFile(path, hasher); err != nil {
			if !errors.Is(err, iofs.ErrNotExist) {
				return "", err
			}
			_, _ = hasher.WriteString(path)
			_, _ = hasher.WriteString(missingMarker)
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// hashJobDefinition hashes everything about the job that is not file content.
func (h *Hasher) hashJobDefinition(job domain.Job, hasher *xxhash.Digest) {
	writeField := func(s string) {
		_, _ = hasher.WriteString(s)
		_, _ = hasher.Write([]byte{0})
	}

	writeField(job.Task.Action.String())
	writeField(job.Task.Destination.String())
	writeField(job.Task.Module)
	writeField(job.Output)

	opts := job.Options
	writeField(opts.Mode.String())
	writeField(strconv.FormatBool(opts.SourceMaps))
	writeField(strconv.FormatBool(opts.Minify))
	writeField(strconv.FormatBool(opts.Comments))
	writeField(strconv.FormatBool(opts.LiveReload))

	writeField(job.Toolchain.SassBinary)
	for _, target := range job.Toolchain.Targets {
		writeField(target)
	}
	_, _ = hasher.Write([]byte{0})
	for _, loadPath := range job.Toolchain.LoadPaths {
		writeField(loadPath)
	}
	_, _ = hasher.Write([]byte{0})
}

func (h *Hasher) hashFile(path string, mainHasher io.Writer) error {
	_, _ = mainHasher.Write([]byte(path))
	_, _ = mainHasher.Write([]byte{0})

	hash, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}

	if err := binary.Write(mainHasher, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, domain.ErrWriteHashFailed.Error())
	}
	return nil
}

// ComputeOutputHash computes the hash of the output files. A missing output is an error.
func (h *Hasher) ComputeOutputHash(outputs []string) (string, error) {
	sortedOutputs := slices.Clone(outputs)
	slices.Sort(sortedOutputs)

	hasher := xxhash.New()
	for _, path := range sortedOutputs {
		if err := h.hashFile(path, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}
