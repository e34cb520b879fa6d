// Package state holds Cerke positions, the Phase union of the turn cycle, the move candidates and
// a compact rule engine that generates and applies them.
package state

import (
	"fmt"
	"slices"
	"strings"
)

// Config of the rule set.
type Config struct {
	// NumSeasons after which the game ends with the higher score winning.
	NumSeasons int

	// InitialScore of each player. Scores are transferred between players, so they always sum
	// to 2*InitialScore.
	InitialScore int

	// CiurlCount is the number of sticks cast before a ranged move after a step.
	CiurlCount int

	// TamSteps enables the Tam2 move forms that step over an occupied cell.
	TamSteps bool
}

// DefaultConfig returns the standard rule set configuration.
func DefaultConfig() Config {
	return Config{
		NumSeasons:   4,
		InitialScore: 20,
		CiurlCount:   5,
		TamSteps:     true,
	}
}

// Situation is the data shared by all phases: the board, the reserves (hop1zuo1) of both sides,
// whose turn it is, the scores and the current season.
type Situation struct {
	Board     [NumCells]Piece
	Hands     [NumSides][]NonTamPiece
	WhoseTurn Side
	Scores    [NumSides]int
	Season    int
}

// At returns the piece at the given coordinate.
func (s *Situation) At(c Coord) Piece {
	return s.Board[c.Num()]
}

func (s *Situation) set(c Coord, p Piece) {
	s.Board[c.Num()] = p
}

// Clone returns a deep copy of the situation.
func (s *Situation) Clone() Situation {
	c := *s
	for side := range c.Hands {
		c.Hands[side] = slices.Clone(s.Hands[side])
	}
	return c
}

// HandHistogram returns the count of each reserve piece of the side, indexed by NonTamPiece.Key.
func (s *Situation) HandHistogram(side Side) (hist [NumColors * NumProfessions]int) {
	for _, p := range s.Hands[side] {
		hist[p.Key()]++
	}
	return
}

// Material is the number of pieces in the reserve of the side.
func (s *Situation) Material(side Side) int {
	return len(s.Hands[side])
}

// String renders the board from row A (top) to row IA, with reserves and scores.
func (s *Situation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Season %d, %s to move, scores ASide=%d IASide=%d\n",
		s.Season, s.WhoseTurn, s.Scores[ASide], s.Scores[IASide])
	sb.WriteString("   ")
	for col := range Column(BoardSize) {
		fmt.Fprintf(&sb, " %-2s", col)
	}
	sb.WriteString("\n")
	for row := range Row(BoardSize) {
		fmt.Fprintf(&sb, "%-3s", row)
		for col := range Column(BoardSize) {
			fmt.Fprintf(&sb, " %-2s", cellGlyph(s.At(Coord{row, col})))
		}
		sb.WriteString("\n")
	}
	for _, side := range []Side{ASide, IASide} {
		fmt.Fprintf(&sb, "%s hand: %v\n", side, s.Hands[side])
	}
	return sb.String()
}

// cellGlyph returns two characters for a cell: the profession letter (lowercase for Huok2) and
// the side marker.
func cellGlyph(p Piece) string {
	switch p.Kind {
	case NoPiece:
		return "."
	case Tam2:
		return "@"
	}
	letter := p.Prof.Letter()
	if p.Color == Huok2 {
		letter = strings.ToLower(letter)
	}
	if p.Side == ASide {
		return letter + "^"
	}
	return letter + "v"
}

// PhaseKind enumerates the variants of Phase.
type PhaseKind uint8

const (
	KindStart PhaseKind = iota
	KindPendingAcceptance
	KindUnresolved
)

func (k PhaseKind) String() string {
	switch k {
	case KindStart:
		return "Start"
	case KindPendingAcceptance:
		return "PendingAcceptance"
	case KindUnresolved:
		return "Unresolved"
	}
	return fmt.Sprintf("PhaseKind(%d)", uint8(k))
}

// Phase is where in the turn cycle the game sits. It is implemented by *Start,
// *PendingAcceptance and *Unresolved only.
type Phase interface {
	Kind() PhaseKind

	// Common returns the situation shared by all variants. It must not be modified.
	Common() *Situation

	// Clone returns a deep copy of the phase.
	Clone() Phase
}

var (
	_ Phase = (*Start)(nil)
	_ Phase = (*PendingAcceptance)(nil)
	_ Phase = (*Unresolved)(nil)
)

// Start is the beginning of a turn: the player moves a piece on the board, moves the Tam2 or
// places a piece from the reserve.
type Start struct {
	Situation
}

func (p *Start) Kind() PhaseKind    { return KindStart }
func (p *Start) Common() *Situation { return &p.Situation }
func (p *Start) Clone() Phase       { return &Start{Situation: p.Situation.Clone()} }
func (p *Start) String() string     { return "Start\n" + p.Situation.String() }

// PendingAcceptance follows an InfAfterStep: the sticks were cast, and the mover must accept a
// destination within Ciurl cells, or decline.
type PendingAcceptance struct {
	Situation
	Move  InfAfterStep
	Ciurl int
}

func (p *PendingAcceptance) Kind() PhaseKind    { return KindPendingAcceptance }
func (p *PendingAcceptance) Common() *Situation { return &p.Situation }
func (p *PendingAcceptance) Clone() Phase {
	return &PendingAcceptance{Situation: p.Situation.Clone(), Move: p.Move, Ciurl: p.Ciurl}
}
func (p *PendingAcceptance) String() string {
	return fmt.Sprintf("PendingAcceptance(%s, ciurl=%d)\n%s", p.Move, p.Ciurl, p.Situation.String())
}

// Unresolved follows a move that formed a new scoring hand: the mover decides between
// continuing the season (tymok) or ending it (taxot). WhoseTurn is still the mover.
type Unresolved struct {
	Situation
	HandScore int
}

func (p *Unresolved) Kind() PhaseKind    { return KindUnresolved }
func (p *Unresolved) Common() *Situation { return &p.Situation }
func (p *Unresolved) Clone() Phase {
	return &Unresolved{Situation: p.Situation.Clone(), HandScore: p.HandScore}
}
func (p *Unresolved) String() string {
	return fmt.Sprintf("Unresolved(hand=%d)\n%s", p.HandScore, p.Situation.String())
}

// Professions of the initial layout by column. The middle row is sparse.
var (
	backRow   = [BoardSize]Profession{Kua2, Maun1, Kaun1, Uai1, Io, Uai1, Kaun1, Maun1, Kua2}
	middleRow = map[Column]Profession{
		ColumnK: Tuk2, ColumnL: Gua2, ColumnT: Dau2, ColumnX: Dau2, ColumnM: Gua2, ColumnP: Tuk2}
	frontRow = [BoardSize]Profession{Kauk2, Kauk2, Kauk2, Kauk2, Nuak1, Kauk2, Kauk2, Kauk2, Kauk2}
)

// initialColor of the piece at column col: IASide has Kok1 on the left half and Huok2 on the right,
// ASide the mirror. The center column takes the left color.
func initialColor(side Side, col Column) Color {
	left := col <= ColumnZ
	if (side == IASide) == left {
		return Kok1
	}
	return Huok2
}

// InitialSituation returns the season starting layout, with the given side to move.
func InitialSituation(cfg Config, first Side) Situation {
	s := Situation{WhoseTurn: first}
	s.Scores[ASide] = cfg.InitialScore
	s.Scores[IASide] = cfg.InitialScore
	rows := [NumSides][3]Row{
		ASide:  {RowIA, RowAU, RowAI},
		IASide: {RowA, RowE, RowI},
	}
	for _, side := range []Side{ASide, IASide} {
		for col := range Column(BoardSize) {
			color := initialColor(side, col)
			s.set(Coord{rows[side][0], col}, NewPiece(color, backRow[col], side))
			if prof, found := middleRow[col]; found {
				s.set(Coord{rows[side][1], col}, NewPiece(color, prof, side))
			}
			s.set(Coord{rows[side][2], col}, NewPiece(color, frontRow[col], side))
		}
	}
	s.set(Coord{RowO, ColumnZ}, Piece{Kind: Tam2})
	return s
}

// NewGame returns the Start phase of a new game with the given side to move.
func NewGame(cfg Config, first Side) *Start {
	return &Start{Situation: InitialSituation(cfg, first)}
}
