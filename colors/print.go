package colors

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// Colors are suppressed when stderr is not a terminal (piped output,
// CI logs) or when NO_COLOR is set.
var enabled = os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(os.Stderr.Fd())

// Disable turns off ANSI output for the rest of the process.
func Disable() {
	enabled = false
}

func (c COLOR) wrap(s string) string {
	if !enabled {
		return s
	}
	return string(c) + s + string(RESET)
}

func (c COLOR) Print(a ...any) {
	fmt.Fprint(os.Stderr, c.wrap(fmt.Sprint(a...)))
}

func (c COLOR) Println(a ...any) {
	fmt.Fprintln(os.Stderr, c.wrap(fmt.Sprint(a...)))
}

func (c COLOR) Printf(format string, a ...any) {
	fmt.Fprint(os.Stderr, c.wrap(fmt.Sprintf(format, a...)))
}

func (c COLOR) Sprint(a ...any) string {
	return c.wrap(fmt.Sprint(a...))
}

func (c COLOR) Sprintln(a ...any) string {
	return c.wrap(fmt.Sprint(a...)) + "\n"
}

func (c COLOR) Sprintf(format string, a ...any) string {
	return c.wrap(fmt.Sprintf(format, a...))
}
