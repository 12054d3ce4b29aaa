package process

import (
	"bytes"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// runPTY starts cmd under a pseudo-terminal. The pty merges stdout and
// stderr, so everything lands in out. Input is not forwarded.
func (e *Exec) runPTY(cmd *exec.Cmd, out *bytes.Buffer, quiet bool) error {
	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if in, ok := e.Stdin.(*os.File); ok {
		_ = pty.InheritSize(in, f)
	}

	// Reading the master returns EIO once the child exits on Linux.
	_, _ = io.Copy(e.tee(out, e.Stdout, quiet), f)

	return cmd.Wait()
}
