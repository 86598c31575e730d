//go:build unix

package redirect

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// swap duplicates target's descriptor, then installs sink's descriptor in
// its place. The returned function reverses the operation.
func swap(target, sink *os.File) (func() error, error) {
	fd := int(target.Fd())

	saved, err := unix.Dup(fd)
	if err != nil {
		return nil, fmt.Errorf("dup fd %d: %w", fd, err)
	}
	if err := unix.Dup2(int(sink.Fd()), fd); err != nil {
		unix.Close(saved)
		return nil, fmt.Errorf("dup2 onto fd %d: %w", fd, err)
	}

	return func() error {
		if err := unix.Dup2(saved, fd); err != nil {
			unix.Close(saved)
			return fmt.Errorf("restore fd %d: %w", fd, err)
		}
		if err := unix.Close(saved); err != nil {
			return fmt.Errorf("close saved fd %d: %w", saved, err)
		}
		return nil
	}, nil
}
