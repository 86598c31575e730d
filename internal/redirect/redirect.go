// Package redirect temporarily points a process output stream somewhere
// else for the duration of one scene.
//
// Redirection works on the file descriptor, so output written by child
// processes and by anything holding the same *os.File is captured too. Only
// one Guard may hold a given stream at a time.
package redirect

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Guard holds one active redirection. Restore must be called exactly once on
// every exit path; extra calls are no-ops.
type Guard struct {
	target   *os.File
	sink     *os.File
	limit    int64
	restore  func() error
	captured []byte
	done     bool
}

// Redirect points target at a fresh, uniquely named temporary file. At most
// limit trailing bytes of what was written are kept after Restore. A limit of
// zero or less discards the output into the null device instead.
func Redirect(target *os.File, limit int64) (*Guard, error) {
	if target == nil {
		return nil, errors.New("redirect: nil target")
	}

	var sink *os.File
	var err error
	if limit > 0 {
		sink, err = os.CreateTemp("", "scene-output-*.log")
	} else {
		sink, err = os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("redirect: open sink: %w", err)
	}

	restore, err := swap(target, sink)
	if err != nil {
		closeSink(sink, limit > 0)
		return nil, fmt.Errorf("redirect %s: %w", target.Name(), err)
	}

	return &Guard{
		target:  target,
		sink:    sink,
		limit:   limit,
		restore: restore,
	}, nil
}

// Restore puts the original destination back onto the target stream and
// releases the sink.
func (g *Guard) Restore() error {
	if g == nil || g.done {
		return nil
	}
	g.done = true

	err := g.restore()
	if g.limit > 0 {
		data, rerr := readTail(g.sink.Name(), g.limit)
		g.captured = data
		err = errors.Join(err, rerr)
	}
	return errors.Join(err, closeSink(g.sink, g.limit > 0))
}

// Captured returns the tail of the redirected output. It is empty until
// Restore has run, and always empty in discard mode.
func (g *Guard) Captured() []byte {
	if g == nil {
		return nil
	}
	return g.captured
}

func closeSink(f *os.File, remove bool) error {
	err := f.Close()
	if remove {
		err = errors.Join(err, os.Remove(f.Name()))
	}
	return err
}

// readTail returns at most limit bytes from the end of the named file.
func readTail(name string, limit int64) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("read captured output: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat captured output: %w", err)
	}
	if off := info.Size() - limit; off > 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek captured output: %w", err)
		}
	}
	return io.ReadAll(f)
}
