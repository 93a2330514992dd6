package joycaption

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/captionforge/captionforge/internal/providers"
)

const runTimeout = 5 * time.Minute

// JoyCaption is a provider that shells out to a local JoyCaption Python
// install. The Model field of a request selects the caption mode
// (descriptive, training, booru, ...).
type JoyCaption struct {
	// PythonPath is the interpreter to run, "python" by default.
	PythonPath string
	// ScriptPath points at a JoyCaption script; when empty the installed
	// module is invoked with -m joycaption.
	ScriptPath string
	// LowVRAM enables the reduced-memory mode.
	LowVRAM bool
	// Timeout bounds one subprocess run; runTimeout when zero.
	Timeout time.Duration
}

// New returns a JoyCaption provider configured from the environment.
func New() *JoyCaption {
	j := &JoyCaption{
		PythonPath: os.Getenv("JOYCAPTION_PYTHON"),
		ScriptPath: os.Getenv("JOYCAPTION_SCRIPT"),
	}
	if j.PythonPath == "" {
		j.PythonPath = "python"
	}
	return j
}

// Caption runs one JoyCaption process for the image and returns its
// trimmed stdout. The run carries its own deadline; a hung process is
// killed and reported as a failed item.
func (j *JoyCaption) Caption(ctx context.Context, req providers.Request) (string, error) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = runTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{}
	if j.ScriptPath != "" {
		args = append(args, j.ScriptPath)
	} else {
		args = append(args, "-m", "joycaption")
	}

	mode := req.Model
	if mode == "" {
		mode = "descriptive"
	}
	args = append(args, "--image", req.ImagePath, "--mode", mode)
	if j.LowVRAM {
		args = append(args, "--low-vram")
	}

	cmd := exec.CommandContext(ctx, j.PythonPath, args...)
	// Orphaned children must not keep the output pipes open forever
	// after the process itself was killed.
	cmd.WaitDelay = 10 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("joycaption failed: %s", msg)
	}

	caption := strings.TrimSpace(stdout.String())
	if caption == "" {
		return "", fmt.Errorf("joycaption returned no caption")
	}
	return caption, nil
}
