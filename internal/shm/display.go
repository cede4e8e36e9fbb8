package shm

import (
	stdErrors "errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/state"
)

const fileMode = 0o644

// DisplayFile mirrors the lines the daemon last asked the device to show.
type DisplayFile struct {
	path string
}

func NewDisplayFile(path string) *DisplayFile { return &DisplayFile{path: path} }

func (f *DisplayFile) Path() string { return f.path }

// Write stores lines as "l1|l2|l3|l4". The text is neither truncated nor
// escaped.
func (f *DisplayFile) Write(lines state.Lines) error {
	data := strings.Join(lines[:], "|")
	if err := config.WriteFileAtomic(f.path, []byte(data), fileMode); err != nil {
		return errors.StorageError("failed to write display file").
			WithCause(err).
			WithContext("path", f.path).
			Build()
	}
	return nil
}

// Read returns the mirrored lines. A missing file means no daemon is running
// and yields a NotFound error. Fields beyond the first three separators stay
// in line 4.
func (f *DisplayFile) Read() (state.Lines, error) {
	var lines state.Lines
	data, err := os.ReadFile(f.path)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return lines, errors.NotFoundError("RFIDisk daemon not running").
				WithContext("path", f.path).
				Build()
		}
		return lines, errors.StorageError("failed to read display file").
			WithCause(err).
			WithContext("path", f.path).
			Build()
	}
	parts := strings.SplitN(strings.TrimRight(string(data), "\n"), "|", 4)
	copy(lines[:], parts)
	return lines, nil
}

// Remove deletes the file. A missing file is not an error.
func (f *DisplayFile) Remove() error {
	return removeIfExists(f.path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return errors.StorageError("failed to remove shared file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}
