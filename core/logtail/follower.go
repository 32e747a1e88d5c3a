package logtail

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// followPollInterval is the fallback re-read cadence for filesystems where
// change notifications are unreliable.
const followPollInterval = 2 * time.Second

const followerBuffer = 256

// Follower streams a log file line by line as the writing process appends
// to it. Truncation restarts from the top and a rotated file is picked up
// once it reappears under the same name.
type Follower struct {
	path   string
	lines  chan string
	stopCh chan struct{}
	doneCh chan struct{}

	stopOnce sync.Once

	// Owned by the run goroutine after Follow returns.
	file    *os.File
	offset  int64
	partial []byte
}

// Follow starts streaming the file at path. The last backlog lines already
// in the file are delivered first, then every appended line. The caller
// must Close the follower when done.
func Follow(path string, backlog int) (*Follower, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoLogFile, path)
		}
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	size := info.Size()

	var history []string
	if backlog > 0 {
		history, err = tailLines(file, size, backlog)
		if err != nil {
			file.Close()
			return nil, err
		}
	}

	f := &Follower{
		path:   filepath.Clean(path),
		lines:  make(chan string, followerBuffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		file:   file,
		offset: size,
	}

	// Change notifications are best effort; the poll ticker covers the
	// rest.
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(filepath.Dir(f.path)); err != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	go f.run(history, watcher)
	return f, nil
}

// Lines returns the channel the follower delivers lines on. It is closed
// when the follower stops.
func (f *Follower) Lines() <-chan string {
	return f.lines
}

// Close stops the follower and waits for its goroutine to exit. It is safe
// to call more than once.
func (f *Follower) Close() error {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
	<-f.doneCh
	return nil
}

func (f *Follower) run(history []string, watcher *fsnotify.Watcher) {
	defer close(f.doneCh)
	defer close(f.lines)
	defer func() {
		if f.file != nil {
			f.file.Close()
		}
	}()
	if watcher != nil {
		defer watcher.Close()
	}

	var events chan fsnotify.Event
	var watchErrs chan error
	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	for _, line := range history {
		if !f.send(line) {
			return
		}
	}
	// Anything appended between open and now.
	if !f.drain() {
		return
	}

	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !f.drain() {
				return
			}

		case _, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
			}

		case <-ticker.C:
			if !f.drain() {
				return
			}
		}
	}
}

// drain reads everything appended since the last offset and emits complete
// lines. It reports false when the follower was stopped mid-send.
func (f *Follower) drain() bool {
	f.reopenIfRotated()
	if f.file == nil {
		return true
	}

	info, err := f.file.Stat()
	if err != nil {
		return true
	}
	if info.Size() < f.offset {
		// Truncated in place; start over from the top.
		f.offset = 0
		f.partial = nil
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := f.file.ReadAt(buf, f.offset)
		if n > 0 {
			f.offset += int64(n)
			if !f.emit(buf[:n]) {
				return false
			}
		}
		if err != nil {
			return true
		}
	}
}

// reopenIfRotated swaps the handle when the name now points at a different
// file. While the name is missing the old handle is kept, so a consumer
// can still finish reading a deleted log.
func (f *Follower) reopenIfRotated() {
	pathInfo, err := os.Stat(f.path)
	if err != nil {
		return
	}
	if f.file != nil {
		if handleInfo, err := f.file.Stat(); err == nil && os.SameFile(pathInfo, handleInfo) {
			return
		}
		f.file.Close()
		f.file = nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return
	}
	f.file = file
	f.offset = 0
	f.partial = nil
}

func (f *Follower) emit(data []byte) bool {
	f.partial = append(f.partial, data...)
	for {
		i := bytes.IndexByte(f.partial, '\n')
		if i < 0 {
			return true
		}
		line := strings.TrimSuffix(string(f.partial[:i]), "\r")
		f.partial = f.partial[i+1:]
		if !f.send(line) {
			return false
		}
	}
}

func (f *Follower) send(line string) bool {
	select {
	case f.lines <- line:
		return true
	case <-f.stopCh:
		return false
	}
}
