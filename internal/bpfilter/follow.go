package bpfilter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"tracekit/internal/logging"
	"tracekit/internal/watch"
)

// tailer filters the bytes appended to a file since the last drain.
// Only complete lines are emitted; a trailing partial line waits for its newline.
type tailer struct {
	mu      sync.Mutex
	path    string
	w       io.Writer
	opts    Options
	offset  int64
	partial string
	matches int
}

func (t *tailer) drain() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < t.offset {
		// Truncated or replaced: start over from the top.
		logging.FilterDebug("%s shrank from %d to %d bytes, rereading", t.path, t.offset, info.Size())
		t.offset = 0
		t.partial = ""
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	t.offset += int64(len(data))

	chunk := t.partial + string(data)
	cut := strings.LastIndexByte(chunk, '\n')
	if cut < 0 {
		t.partial = chunk
		return nil
	}
	t.partial = chunk[cut+1:]

	n, err := Filter(strings.NewReader(chunk[:cut+1]), t.w, t.opts)
	t.matches += n
	return err
}

// Follow filters the current content of path and then keeps filtering lines
// appended to it until ctx is cancelled. It returns the number of matches.
func Follow(ctx context.Context, path string, w io.Writer, opts Options, debounce time.Duration) (int, error) {
	t := &tailer{path: path, w: w, opts: opts}
	if err := t.drain(); err != nil {
		return 0, err
	}

	errCh := make(chan error, 1)
	fw, err := watch.New(path, debounce, func(_ context.Context, _ string) {
		if err := t.drain(); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	})
	if err != nil {
		return t.count(), err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return t.count(), err
	}
	defer fw.Stop()

	logging.Filter("following %s", path)
	select {
	case <-ctx.Done():
		return t.count(), nil
	case err := <-errCh:
		return t.count(), fmt.Errorf("follow %s: %w", path, err)
	}
}

func (t *tailer) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.matches
}
