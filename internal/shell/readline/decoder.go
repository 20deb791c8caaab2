package readline

import (
	"bufio"
	"io"
)

// KeyKind classifies a decoded key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyCtrlA
	KeyCtrlC
	KeyCtrlD
	KeyCtrlE
	KeyCtrlK
	KeyCtrlL
	KeyCtrlU
	KeyIgnore
)

// Key is one decoded key press.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Decoder turns the raw terminal byte stream into key events,
// including CSI escape sequences for arrows, home/end, and delete.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps the terminal input stream.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// ReadKey blocks for the next key press.
func (d *Decoder) ReadKey() (Key, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return Key{}, err
	}

	switch b {
	case '\r', '\n':
		return Key{Kind: KeyEnter}, nil
	case '\t':
		return Key{Kind: KeyTab}, nil
	case 0x7f, 0x08:
		return Key{Kind: KeyBackspace}, nil
	case 0x01:
		return Key{Kind: KeyCtrlA}, nil
	case 0x03:
		return Key{Kind: KeyCtrlC}, nil
	case 0x04:
		return Key{Kind: KeyCtrlD}, nil
	case 0x05:
		return Key{Kind: KeyCtrlE}, nil
	case 0x0b:
		return Key{Kind: KeyCtrlK}, nil
	case 0x0c:
		return Key{Kind: KeyCtrlL}, nil
	case 0x15:
		return Key{Kind: KeyCtrlU}, nil
	case 0x1b:
		return d.readEscape()
	}

	if b < 0x20 {
		return Key{Kind: KeyIgnore}, nil
	}

	// Multi-byte rune: put the lead byte back and decode properly.
	if b >= 0x80 {
		if err := d.r.UnreadByte(); err != nil {
			return Key{Kind: KeyIgnore}, nil
		}
		r, _, err := d.r.ReadRune()
		if err != nil {
			return Key{}, err
		}
		return Key{Kind: KeyRune, Rune: r}, nil
	}
	return Key{Kind: KeyRune, Rune: rune(b)}, nil
}

func (d *Decoder) readEscape() (Key, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return Key{Kind: KeyIgnore}, nil
	}
	if b != '[' && b != 'O' {
		return Key{Kind: KeyIgnore}, nil
	}

	b, err = d.r.ReadByte()
	if err != nil {
		return Key{Kind: KeyIgnore}, nil
	}
	switch b {
	case 'A':
		return Key{Kind: KeyUp}, nil
	case 'B':
		return Key{Kind: KeyDown}, nil
	case 'C':
		return Key{Kind: KeyRight}, nil
	case 'D':
		return Key{Kind: KeyLeft}, nil
	case 'H':
		return Key{Kind: KeyHome}, nil
	case 'F':
		return Key{Kind: KeyEnd}, nil
	case '1', '7':
		d.discardTilde()
		return Key{Kind: KeyHome}, nil
	case '4', '8':
		d.discardTilde()
		return Key{Kind: KeyEnd}, nil
	case '3':
		d.discardTilde()
		return Key{Kind: KeyDelete}, nil
	}
	return Key{Kind: KeyIgnore}, nil
}

func (d *Decoder) discardTilde() {
	if b, err := d.r.ReadByte(); err == nil && b != '~' {
		d.r.UnreadByte()
	}
}
