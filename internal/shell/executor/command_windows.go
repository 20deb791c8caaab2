//go:build windows

package executor

import osexec "os/exec"

// newCommand builds the process for one external pipeline stage.
//
// On Windows every external command is routed through cmd /C: script-
// associated executables (npm.cmd and other wrapper scripts) only
// resolve through the system interpreter. This is the single external
// exec path on the platform; a second direct-invocation path would
// reintroduce the partial-invocation bugs the shim exists to avoid.
func newCommand(name string, args []string) *osexec.Cmd {
	return osexec.Command("cmd", append([]string{"/C", name}, args...)...)
}
