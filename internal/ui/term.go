package ui

import (
	"os"
	"time"

	"golang.org/x/term"
)

// IsTTY reports whether the given file descriptor refers to a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// TermWidth returns the terminal width in columns, or 80 if it cannot be determined.
func TermWidth(fd uintptr) int {
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// TargetConfig selects a draw target.
type TargetConfig struct {
	Out          *os.File
	Quiet        bool
	NoProgress   bool
	LineInterval time.Duration
}

// NewTarget picks the inline terminal display on a TTY, periodic lines
// otherwise, and nothing when quiet.
//
//nolint:ireturn // factory function returns interface by design
func NewTarget(cfg TargetConfig) Target {
	switch {
	case cfg.Quiet:
		return Discard{}
	case cfg.NoProgress || !IsTTY(cfg.Out.Fd()):
		return NewLines(cfg.Out, cfg.LineInterval)
	default:
		return NewTerminal(cfg.Out, TermWidth(cfg.Out.Fd()))
	}
}
