//go:build !unix

package redirect

import (
	"fmt"
	"os"
)

// swap replaces the os.Stdout or os.Stderr variable. Descriptors cannot be
// duplicated portably here, so output from child processes is not captured.
func swap(target, sink *os.File) (func() error, error) {
	switch target {
	case os.Stdout:
		os.Stdout = sink
		return func() error { os.Stdout = target; return nil }, nil
	case os.Stderr:
		os.Stderr = sink
		return func() error { os.Stderr = target; return nil }, nil
	}
	return nil, fmt.Errorf("only stdout and stderr can be redirected on this platform")
}
