package output

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether w is connected to a terminal. Progress bars,
// banners, and snippet colorization all key off this.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// TerminalWidth returns w's terminal width clamped to [40, 200], or 80
// when w is not a terminal or the size query fails. The clamp keeps
// progress bars readable on very narrow and very wide terminals.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	if width < 40 {
		return 40
	}
	if width > 200 {
		return 200
	}
	return width
}
