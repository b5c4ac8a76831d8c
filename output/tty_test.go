package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTTYFalseForBuffer(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestIsTTYFalseForPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Skip("cannot create pipe")
	}
	defer r.Close()
	defer w.Close()
	assert.False(t, IsTTY(w), "a pipe is a file but not a terminal")
}

func TestTerminalWidthFallsBackForNonFile(t *testing.T) {
	assert.Equal(t, 80, TerminalWidth(&bytes.Buffer{}))
}

func TestTerminalWidthFallsBackForPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Skip("cannot create pipe")
	}
	defer r.Close()
	defer w.Close()
	assert.Equal(t, 80, TerminalWidth(w))
}

func TestTerminalWidthStaysWithinClamp(t *testing.T) {
	// Whatever the environment, the clamp must hold so progress bars
	// never render degenerate widths.
	width := TerminalWidth(os.Stdout)
	assert.GreaterOrEqual(t, width, 40)
	assert.LessOrEqual(t, width, 200)
}
