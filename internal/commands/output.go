package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

// header prints an underlined title.
func header(w io.Writer, text string) {
	bold.Fprintf(w, "\n%s\n", text)
	bold.Fprintf(w, "%s\n", strings.Repeat("=", len([]rune(text))))
}

func success(w io.Writer, format string, args ...interface{}) {
	green.Fprintf(w, "  → "+format+"\n", args...)
}

func warning(w io.Writer, format string, args ...interface{}) {
	yellow.Fprintf(w, "  ⚠ "+format+"\n", args...)
}

// field prints an aligned label and value.
func field(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "  %-16s %v\n", label+":", value)
}

// money colors negative amounts red.
func money(w io.Writer, label, formatted string, negative bool) {
	fmt.Fprintf(w, "  %-16s ", label+":")
	if negative {
		red.Fprintln(w, formatted)
		return
	}
	green.Fprintln(w, formatted)
}
