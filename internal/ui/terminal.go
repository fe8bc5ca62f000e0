package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	barWidth    = 40
	terminalFPS = 10
)

type frameMsg Frame

// model renders the four regions inline (no alt screen). The tea program's
// own goroutine does the writing.
type model struct {
	frame   Frame
	width   int
	spinner spinner.Spinner
	current progress.Model
	files   progress.Model
	bytes   progress.Model
}

func newBar(color string) progress.Model {
	return progress.New(
		progress.WithSolidFill(color),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
}

func newModel(width int) model {
	return model{
		width:   width,
		spinner: spinner.Dot,
		current: newBar(string(ColorYellow)),
		files:   newBar(string(ColorBlue)),
		bytes:   newBar(string(ColorGreen)),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = Frame(msg)
		if m.frame.Done {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m model) View() string {
	f := m.frame
	frames := m.spinner.Frames
	spin := frames[f.Spinner%len(frames)]
	if f.Done {
		spin = "✓"
	}

	var b strings.Builder

	// Line 1: spinner + current file name.
	name := f.Name
	if m.width > 4 {
		name = truncPath(name, m.width-3)
	}
	b.WriteString(styleSpinner.Render(spin) + " " + styleName.Render(name) + "\n")

	// Line 2: current file bytes, elapsed, ETA, instantaneous rate.
	b.WriteString(m.line("current", m.current, f.Current, f,
		fmt.Sprintf("%8s/%-8s", FormatBytes(f.Current.Position), FormatBytes(f.Current.Length)), true))
	b.WriteString(" " + styleRate.Render(f.Current.Message) + "\n")

	// Line 3: files.
	b.WriteString(m.line("files", m.files, f.Files, f,
		fmt.Sprintf("%8d/%-8d", f.Files.Position, f.Files.Length), false) + "\n")

	// Line 4: bytes.
	b.WriteString(m.line("bytes", m.bytes, f.Bytes, f,
		fmt.Sprintf("%8s/%-8s", FormatBytes(f.Bytes.Position), FormatBytes(f.Bytes.Length)), true) + "\n")

	return b.String()
}

func (m model) line(label string, pm progress.Model, bar Bar, f Frame, counts string, eta bool) string {
	s := styleLabel.Render(label) + pm.ViewAs(bar.Fraction()) + " " +
		styleCounts.Render(counts) + " " +
		styleTime.Render(fmt.Sprintf("%5s", FormatDuration(bar.Elapsed(f.At))))
	if eta {
		s += styleTime.Render(" ETA " + FormatETA(bar.ETA(f.At)))
	}
	return s
}

// truncPath shortens a path to fit within maxLen characters.
func truncPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-maxLen+3:]
}

// Terminal draws frames with a Bubble Tea program on a TTY.
type Terminal struct {
	prog      *tea.Program
	done      chan struct{}
	err       error
	closeOnce sync.Once
}

// NewTerminal starts the render goroutine writing to w.
func NewTerminal(w io.Writer, width int) *Terminal {
	t := &Terminal{done: make(chan struct{})}
	t.prog = tea.NewProgram(
		newModel(width),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
		tea.WithFPS(terminalFPS),
	)
	go func() {
		defer close(t.done)
		_, t.err = t.prog.Run()
	}()
	return t
}

// Draw hands f to the render goroutine. A Done frame ends the program after
// its final paint.
func (t *Terminal) Draw(f Frame) {
	t.prog.Send(frameMsg(f))
}

// Close stops the program if it is still running and waits for it to exit.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.prog.Quit()
		<-t.done
	})
	return t.err
}
