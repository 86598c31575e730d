package compare

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/banshee-data/scene-regress/internal/monitoring"
)

// ScenePlaceholder in a command argument is replaced by the scene directory.
// When no argument contains it, the directory is appended instead.
const ScenePlaceholder = "{scene}"

// MaxResultOutput bounds how much of the program's stdout is kept. Only the
// trailing bytes survive, which always include the result line.
const MaxResultOutput = 1 << 20

// ErrNoCommand is returned by Exec when no command has been configured.
var ErrNoCommand = errors.New("no comparator command configured")

// Exec runs an external scene-comparison program once per scene.
//
// The program receives the scene directory and must print a JSON object with
// cost, d_cost, movement and d_movement on its last non-empty stdout line.
// Earlier stdout lines are forwarded to the trace log. A non-zero exit status
// or a missing field fails the scene.
type Exec struct {
	Command []string
	Timeout time.Duration

	// Stderr receives the program's stderr. Nil means the os.Stderr in
	// effect when Compare runs.
	Stderr io.Writer
	Log    *monitoring.Logger
}

// Compare runs the configured program for sceneDir.
func (e *Exec) Compare(ctx context.Context, sceneDir string) (SceneStats, error) {
	if len(e.Command) == 0 {
		return SceneStats{}, ErrNoCommand
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	name, args := e.argv(sceneDir)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = sceneDir
	cmd.WaitDelay = time.Second

	stdout := &tailBuffer{limit: MaxResultOutput}
	cmd.Stdout = stdout
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	e.Log.Logf("compare: %s %s", name, strings.Join(args, " "))
	start := time.Now()
	runErr := cmd.Run()
	e.Log.Logf("compare: %s finished in %v", sceneDir, time.Since(start).Round(time.Millisecond))

	if ctx.Err() == context.DeadlineExceeded {
		return SceneStats{}, fmt.Errorf("comparator timed out after %v", e.Timeout)
	}
	if runErr != nil {
		return SceneStats{}, fmt.Errorf("comparator %s: %w", name, runErr)
	}
	return e.parse(stdout.Bytes())
}

func (e *Exec) argv(sceneDir string) (string, []string) {
	args := make([]string, 0, len(e.Command))
	substituted := false
	for _, a := range e.Command[1:] {
		if strings.Contains(a, ScenePlaceholder) {
			a = strings.ReplaceAll(a, ScenePlaceholder, sceneDir)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, sceneDir)
	}
	return e.Command[0], args
}

// wireStats mirrors SceneStats with pointers so absent fields are detected.
type wireStats struct {
	Cost      *float64 `json:"cost"`
	DCost     *float64 `json:"d_cost"`
	Movement  *float64 `json:"movement"`
	DMovement *float64 `json:"d_movement"`
}

func (e *Exec) parse(out []byte) (SceneStats, error) {
	var last string
	r := bufio.NewReader(bytes.NewReader(out))
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" {
			if last != "" {
				e.Log.Logf("%s", last)
			}
			last = l
		}
		if err != nil {
			break
		}
	}
	if last == "" {
		return SceneStats{}, errors.New("comparator produced no output")
	}

	var w wireStats
	if err := json.Unmarshal([]byte(last), &w); err != nil {
		return SceneStats{}, fmt.Errorf("parse comparator result %q: %w", last, err)
	}

	var missing []string
	if w.Cost == nil {
		missing = append(missing, "cost")
	}
	if w.DCost == nil {
		missing = append(missing, "d_cost")
	}
	if w.Movement == nil {
		missing = append(missing, "movement")
	}
	if w.DMovement == nil {
		missing = append(missing, "d_movement")
	}
	if len(missing) > 0 {
		return SceneStats{}, fmt.Errorf("comparator result missing %s", strings.Join(missing, ", "))
	}

	return SceneStats{
		Cost:      *w.Cost,
		DCost:     *w.DCost,
		Movement:  *w.Movement,
		DMovement: *w.DMovement,
	}, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf     []byte
	limit   int
	dropped bool
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	// Trim lazily so a stream of small writes does not move the buffer each time.
	if len(b.buf) > 2*b.limit {
		b.buf = append(b.buf[:0], b.buf[len(b.buf)-b.limit:]...)
		b.dropped = true
	}
	return len(p), nil
}

// Bytes returns the kept tail. When output was dropped the first, partial
// line is skipped.
func (b *tailBuffer) Bytes() []byte {
	out := b.buf
	if len(out) > b.limit {
		out = out[len(out)-b.limit:]
		b.dropped = true
	}
	if b.dropped {
		if i := bytes.IndexByte(out, '\n'); i >= 0 {
			out = out[i+1:]
		}
	}
	return out
}
