package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoLogFile is returned when a task's log file does not exist on disk.
var ErrNoLogFile = errors.New("log file not found")

const tailBlockSize = 8192

// Tail returns the last n lines of the file at path, oldest first. A file
// without a trailing newline still yields its final partial line. n <= 0
// returns no lines.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoLogFile, path)
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return tailLines(f, info.Size(), n)
}

// tailLines reads the last n lines of the first limit bytes of f, scanning
// backwards block by block so huge logs are never read whole.
func tailLines(f *os.File, limit int64, n int) ([]string, error) {
	if limit == 0 {
		return []string{}, nil
	}

	var (
		buf      []byte
		offset   = limit
		newlines int
	)
	for offset > 0 && newlines <= n {
		readSize := int64(tailBlockSize)
		if offset < readSize {
			readSize = offset
		}
		offset -= readSize

		block := make([]byte, readSize)
		if _, err := f.ReadAt(block, offset); err != nil {
			return nil, err
		}
		buf = append(block, buf...)
		newlines = bytes.Count(buf, []byte{'\n'})
	}

	lines := strings.Split(string(buf), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}
