package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/colorstring"

	"github.com/gogpu/oil/diag"
)

// ui writes results to out and messages to errOut, colored when errOut
// is a terminal.
type ui struct {
	out    io.Writer
	errOut io.Writer
	color  bool
	colors *colorstring.Colorize
}

func newUI(out io.Writer, errOut *os.File, noColor bool) *ui {
	color := !noColor && (isatty.IsTerminal(errOut.Fd()) || isatty.IsCygwinTerminal(errOut.Fd()))
	return &ui{
		out:    out,
		errOut: errOut,
		color:  color,
		colors: &colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !color,
		},
	}
}

func (u *ui) logColor() hclog.ColorOption {
	if u.color {
		return hclog.AutoColor
	}
	return hclog.ColorOff
}

// fail prints err, one block per wrapped failure.
func (u *ui) fail(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			u.printError(e)
		}
		return
	}
	u.printError(err)
}

func (u *ui) printError(err error) {
	var de *diag.Error
	if errors.As(err, &de) && de.Source != "" {
		if context, _, ok := strings.Cut(err.Error(), ": "+de.Error()); ok && context != "" {
			fmt.Fprintln(u.errOut, u.colors.Color("[bold]")+context+u.colors.Color("[reset]"))
		}
		fmt.Fprint(u.errOut, u.colors.Color("[red]")+de.FormatWithContext()+u.colors.Color("[reset]"))
		return
	}
	fmt.Fprintln(u.errOut, u.colors.Color("[red][bold]error:[reset] ")+err.Error())
}

// diagnostics prints the collected diagnostics of one entry.
func (u *ui) diagnostics(entry string, list diag.List) {
	for _, d := range list {
		color := "[red]"
		if d.Severity == diag.SeverityWarning {
			color = "[yellow]"
		}
		fmt.Fprintf(u.errOut, "%s: %s%s%s\n", entry, u.colors.Color(color), d, u.colors.Color("[reset]"))
	}
}
