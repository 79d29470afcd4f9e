package cmd

import (
	"fmt"
	"io"
	"os"
)

// consoleWriter prints command results, tests swap it to capture the output.
var consoleWriter consoleWrapper = &writerConsole{out: os.Stdout}

type (
	consoleWrapper interface {
		Println(a ...any)
		Print(a ...any)
	}

	writerConsole struct {
		out io.Writer
	}
)

func (c *writerConsole) Println(a ...any) {
	_, _ = fmt.Fprintln(c.out, a...)
}

func (c *writerConsole) Print(a ...any) {
	_, _ = fmt.Fprint(c.out, a...)
}
