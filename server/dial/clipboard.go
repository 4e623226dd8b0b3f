package dial

import (
	"encoding/base64"
	"fmt"
	"io"
)

type Clipboard interface {
	WriteText(text string) error
}

// TerminalClipboard copies text through the terminal emulator using the
// OSC 52 escape sequence, which also works over ssh.
type TerminalClipboard struct {
	Out io.Writer
}

func (c TerminalClipboard) WriteText(text string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	_, err := fmt.Fprintf(c.Out, "\x1b]52;c;%s\x07", encoded)
	return err
}
