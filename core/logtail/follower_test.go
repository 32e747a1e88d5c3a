package logtail

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitLine(t *testing.T, f *Follower) string {
	t.Helper()
	select {
	case line, ok := <-f.Lines():
		require.True(t, ok, "line channel closed early")
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a line")
		return ""
	}
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestFollowerDeliversBacklogThenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	f, err := Follow(path, 2)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "two", waitLine(t, f))
	assert.Equal(t, "three", waitLine(t, f))

	appendLine(t, path, "four")
	appendLine(t, path, "five")
	assert.Equal(t, "four", waitLine(t, f))
	assert.Equal(t, "five", waitLine(t, f))
}

func TestFollowerHoldsPartialLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.log")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	f, err := Follow(path, 0)
	require.NoError(t, err)
	defer f.Close()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("partial")
	require.NoError(t, err)
	require.NoError(t, file.Sync())

	// No newline yet, so nothing must be delivered.
	select {
	case line := <-f.Lines():
		t.Fatalf("unexpected line %q before newline", line)
	case <-time.After(200 * time.Millisecond):
	}

	_, err = file.WriteString(" now complete\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	assert.Equal(t, "partial now complete", waitLine(t, f))
}

func TestFollowerRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.log")
	require.NoError(t, os.WriteFile(path, []byte("old one\nold two\n"), 0o644))

	f, err := Follow(path, 0)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, os.Truncate(path, 0))
	appendLine(t, path, "fresh start")

	assert.Equal(t, "fresh start", waitLine(t, f))
}

func TestFollowerPicksUpRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.log")
	require.NoError(t, os.WriteFile(path, []byte("before\n"), 0o644))

	f, err := Follow(path, 0)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, []byte("after rotation\n"), 0o644))

	assert.Equal(t, "after rotation", waitLine(t, f))
}

func TestFollowMissingFile(t *testing.T) {
	_, err := Follow(filepath.Join(t.TempDir(), "nope.log"), 0)
	assert.ErrorIs(t, err, ErrNoLogFile)
}

func TestFollowerCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "task.log")
	require.NoError(t, os.WriteFile(path, []byte("line\n"), 0o644))

	f, err := Follow(path, 1)
	require.NoError(t, err)
	assert.Equal(t, "line", waitLine(t, f))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, ok := <-f.Lines()
	assert.False(t, ok, "line channel must be closed after Close")
}
