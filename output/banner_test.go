package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBannerIncludesVersionAndLicense(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0")

	out := buf.String()
	assert.Contains(t, out, "Kaizen v0.1.0")
	assert.Contains(t, out, "MIT License")
	assert.Contains(t, out, "https://github.com/kzn-tools/kaizen")
	assert.Greater(t, strings.Count(out, "\n"), 3, "ASCII art renders over multiple lines")
}

func TestPrintBannerNilWriterDoesNotPanic(t *testing.T) {
	PrintBanner(nil, "0.1.0")
}

func TestCompactBannerIsOneLine(t *testing.T) {
	line := CompactBanner("0.1.0")
	assert.Equal(t, "Kaizen v0.1.0 | MIT | https://github.com/kzn-tools/kaizen", line)
	assert.NotContains(t, line, "\n")
}

func TestShouldShowBanner(t *testing.T) {
	cases := []struct {
		name     string
		isTTY    bool
		noBanner bool
		want     bool
	}{
		{"tty without flag", true, false, true},
		{"tty with flag", true, true, false},
		{"non-tty without flag", false, false, false},
		{"non-tty with flag", false, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldShowBanner(tc.isTTY, tc.noBanner))
		})
	}
}
