package session

import (
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
)

// ShellKind names one of the closed set of shells a session can run.
type ShellKind string

const (
	ShellEmbedded   ShellKind = "embedded"
	ShellBash       ShellKind = "bash"
	ShellZsh        ShellKind = "zsh"
	ShellFish       ShellKind = "fish"
	ShellSh         ShellKind = "sh"
	ShellPowerShell ShellKind = "powershell"
	ShellCmd        ShellKind = "cmd"
)

// Kinds lists every shell kind, embedded first. Availability is
// host-dependent; the Windows shells simply probe as unavailable
// elsewhere.
func Kinds() []ShellKind {
	return []ShellKind{
		ShellEmbedded, ShellBash, ShellZsh, ShellFish, ShellSh,
		ShellPowerShell, ShellCmd,
	}
}

// ShellInfo describes one shell kind's availability on this host.
type ShellInfo struct {
	Kind      ShellKind `json:"kind"`
	Available bool      `json:"available"`
	Path      string    `json:"path,omitempty"`
}

// resolveShell maps a shell kind to the binary to spawn. The embedded
// shell ships alongside the daemon binary; system shells resolve via
// PATH.
func resolveShell(kind ShellKind) (string, error) {
	switch kind {
	case ShellEmbedded:
		return embeddedShellPath()
	case ShellBash, ShellZsh, ShellFish, ShellSh, ShellPowerShell, ShellCmd:
		path, err := osexec.LookPath(string(kind))
		if err != nil {
			return "", fmt.Errorf("shell %q not available: %w", kind, err)
		}
		return path, nil
	default:
		return "", fmt.Errorf("unknown shell kind %q", kind)
	}
}

func embeddedShellPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("embedded shell not locatable: %w", err)
	}
	name := "termsh"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(filepath.Dir(self), name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("embedded shell not available at %s: %w", path, err)
	}
	return path, nil
}

// ListShells probes every shell kind and reports availability.
func ListShells() []ShellInfo {
	kinds := Kinds()
	out := make([]ShellInfo, 0, len(kinds))
	for _, k := range kinds {
		path, err := resolveShell(k)
		out = append(out, ShellInfo{Kind: k, Available: err == nil, Path: path})
	}
	return out
}
