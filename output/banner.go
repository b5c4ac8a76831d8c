package output

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

const bannerTagline = "MIT License | https://github.com/kzn-tools/kaizen"

// PrintBanner writes the full ASCII-art startup banner with version and
// license lines, followed by a blank separator line.
func PrintBanner(w io.Writer, version string) {
	if w == nil {
		return
	}
	fmt.Fprintln(w, figure.NewFigure("Kaizen", "standard", true).String())
	fmt.Fprintf(w, "Kaizen v%s\n", version)
	fmt.Fprintln(w, bannerTagline)
	fmt.Fprintln(w)
}

// CompactBanner returns the single-line banner used when the full
// ASCII-art form would be noise (non-TTY output, piped logs).
func CompactBanner(version string) string {
	return fmt.Sprintf("Kaizen v%s | MIT | https://github.com/kzn-tools/kaizen", version)
}

// ShouldShowBanner reports whether the full banner should print: only
// on a terminal, and never when --no-banner is set.
func ShouldShowBanner(isTTY bool, noBannerFlag bool) bool {
	return isTTY && !noBannerFlag
}
