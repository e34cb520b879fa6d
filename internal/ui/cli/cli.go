// Package cli renders game phases on the terminal, for debugging self-play and the bot demo.
package cli

import (
	"bytes"
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"io"
	"os"
	"regexp"
	"strings"
)

// CharsPerColumn is the width of a board cell.
const CharsPerColumn = 4

var ansiFilter = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// displayWidth of s removes its color/control sequences and returns the length of what is left.
func displayWidth(s string) int {
	return len([]rune(ansiFilter.ReplaceAllString(s, "")))
}

func centerString(s string, fit int) string {
	width := displayWidth(s)
	if width >= fit {
		return s
	}
	marginLeft := (fit - width) / 2
	marginRight := fit - width - marginLeft
	return strings.Repeat(" ", marginLeft) + s + strings.Repeat(" ", marginRight)
}

// UI prints phases to a writer, optionally with ANSI colors.
type UI struct {
	w                  io.Writer
	color, clearScreen bool

	// width of the terminal, or 0 if the output is not a terminal.
	width int
}

// New creates a UI printing to stdout. Centering is only done if stdout is a terminal.
func New(color, clearScreen bool) *UI {
	ui := &UI{w: os.Stdout, color: color, clearScreen: clearScreen}
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		ui.width, _, _ = term.GetSize(fd)
	}
	return ui
}

// NewWithWriter creates a UI printing to w, without centering.
func NewWithWriter(w io.Writer, color bool) *UI {
	return &UI{w: w, color: color}
}

func (ui *UI) printCentered(block string) {
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	blockWidth := 0
	for _, line := range lines {
		blockWidth = max(blockWidth, displayWidth(line))
	}
	indent := max((ui.width-blockWidth)/2, 0)
	for _, line := range lines {
		if len(line) == 0 {
			_, _ = fmt.Fprintln(ui.w)
			continue
		}
		_, _ = fmt.Fprintf(ui.w, "%s%s\n", strings.Repeat(" ", indent), line)
	}
}

// Print the phase: header, board, reserves and, for the non-Start phases, what is being decided.
func (ui *UI) Print(phase state.Phase) {
	if ui.clearScreen {
		_, _ = fmt.Fprint(ui.w, "\033c")
	}
	s := phase.Common()
	_, _ = fmt.Fprintf(ui.w, "\n%sSeason %d, %s%s: ", ui.headerStart(), s.Season+1, phase.Kind(), ui.colorEnd())
	ui.PrintSide(s.WhoseTurn)
	_, _ = fmt.Fprintf(ui.w, " to play (scores: ASide=%d, IASide=%d)\n\n", s.Scores[state.ASide], s.Scores[state.IASide])
	ui.PrintBoard(s)
	_, _ = fmt.Fprintln(ui.w)
	ui.PrintHands(s)
	switch p := phase.(type) {
	case *state.PendingAcceptance:
		_, _ = fmt.Fprintf(ui.w, "\tPending %s, ciurl=%d\n", p.Move, p.Ciurl)
	case *state.Unresolved:
		_, _ = fmt.Fprintf(ui.w, "\tNew hand worth %d points: tymok or taxot?\n", p.HandScore)
	}
}

// PrintSide prints the side name with its color.
func (ui *UI) PrintSide(side state.Side) {
	_, _ = fmt.Fprintf(ui.w, "%s%s%s", ui.colorStart(side), side, ui.colorEnd())
}

// PrintBoard prints the 9x9 board, row A at the top.
func (ui *UI) PrintBoard(s *state.Situation) {
	var buf bytes.Buffer
	buf.WriteString(strings.Repeat(" ", CharsPerColumn))
	for col := range state.Column(state.BoardSize) {
		buf.WriteString(centerString(col.String(), CharsPerColumn))
	}
	buf.WriteString("\n")
	for row := range state.Row(state.BoardSize) {
		buf.WriteString(centerString(row.String(), CharsPerColumn))
		for col := range state.Column(state.BoardSize) {
			buf.WriteString(ui.cell(s.At(state.Coord{Row: row, Column: col})))
		}
		buf.WriteString("\n")
	}
	ui.printCentered(buf.String())
}

// cell renders one piece: the profession letter (lowercase for Huok2) followed by an arrow
// pointing in the direction the side moves.
func (ui *UI) cell(p state.Piece) string {
	switch p.Kind {
	case state.NoPiece:
		return centerString(".", CharsPerColumn)
	case state.Tam2:
		return ui.tamStart() + centerString("@", CharsPerColumn) + ui.colorEnd()
	}
	letter := p.Prof.Letter()
	if p.Color == state.Huok2 {
		letter = strings.ToLower(letter)
	}
	arrow := "^"
	if p.Side == state.IASide {
		arrow = "v"
	}
	return ui.colorStart(p.Side) + centerString(letter+arrow, CharsPerColumn) + ui.colorEnd()
}

// PrintHands prints the reserve (hop1zuo1) of both sides.
func (ui *UI) PrintHands(s *state.Situation) {
	for _, side := range []state.Side{state.ASide, state.IASide} {
		pieces := make([]string, 0, len(s.Hands[side]))
		for _, p := range s.Hands[side] {
			pieces = append(pieces, p.String())
		}
		space := ""
		if side == state.ASide {
			space = " "
		}
		_, _ = fmt.Fprintf(ui.w, "%s%s%s%s hand (%d points): [%s]\n",
			space, ui.colorStart(side), side, ui.colorEnd(), state.HandScore(s.Hands[side]),
			strings.Join(pieces, ", "))
	}
}

// PrintCandidate prints the decision taken by side.
func (ui *UI) PrintCandidate(side state.Side, c state.Candidate) {
	_, _ = fmt.Fprint(ui.w, "\t")
	ui.PrintSide(side)
	_, _ = fmt.Fprintf(ui.w, " plays %s\n", c)
}

// PrintEnding prints the result of a finished game.
func (ui *UI) PrintEnding(ending *state.Ending) {
	_, _ = fmt.Fprintln(ui.w)
	var msg string
	if ending.Draw() {
		msg = fmt.Sprintf("*** DRAW: %d x %d ***", ending.Scores[state.ASide], ending.Scores[state.IASide])
	} else {
		msg = fmt.Sprintf("*** %s WINS with %d points! ***", strings.ToUpper(ending.Victor.String()), ending.Scores[*ending.Victor])
	}
	if ui.color {
		msg = lipgloss.NewStyle().
			Background(lipgloss.Color("13")).
			Foreground(lipgloss.Color("0")).
			Padding(1, 2).
			Render(msg)
	}
	ui.printCentered(msg)
	_, _ = fmt.Fprintln(ui.w)
}

func (ui *UI) colorStart(side state.Side) string {
	if !ui.color {
		return ""
	}
	if side == state.ASide {
		return "\033[30;41;1m"
	}
	return "\033[30;42;1m"
}

func (ui *UI) tamStart() string {
	if !ui.color {
		return ""
	}
	return "\033[37;44;1m"
}

func (ui *UI) headerStart() string {
	if !ui.color {
		return ""
	}
	return "\033[37;03;1m"
}

func (ui *UI) colorEnd() string {
	if !ui.color {
		return ""
	}
	return "\033[39;49;0m"
}
