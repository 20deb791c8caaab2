//go:build linux || darwin || freebsd || netbsd || openbsd

package readline

import "golang.org/x/sys/unix"

// TermState holds the terminal attributes to restore on exit from raw
// mode.
type TermState struct {
	termios unix.Termios
}

// MakeRaw switches the terminal on fd into raw mode: no echo, no line
// buffering, no signal generation (the editor handles Ctrl-C itself).
// The returned state restores the previous attributes.
func MakeRaw(fd int) (*TermState, error) {
	old, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, err
	}
	state := &TermState{termios: *old}

	raw := *old
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return nil, err
	}
	return state, nil
}

// Restore reapplies the saved terminal attributes.
func Restore(fd int, state *TermState) error {
	if state == nil {
		return nil
	}
	return unix.IoctlSetTermios(fd, ioctlWriteTermios, &state.termios)
}
