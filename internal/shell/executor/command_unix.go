//go:build !windows

package executor

import osexec "os/exec"

// newCommand builds the process for one external pipeline stage. On
// Unix the binary is invoked directly.
func newCommand(name string, args []string) *osexec.Cmd {
	return osexec.Command(name, args...)
}
