package state

import "fmt"

// Candidate is a legal move for a given Phase, as produced by an Engine. It is one of
// NonTamMoveSrcDst, NonTamMoveSrcStepDstFinite, InfAfterStep, TamMove, NonTamMoveFromHopZuo,
// AfterHalfAcceptance or HandDecision.
//
// All implementations are comparable values, so candidates can be compared with ==.
type Candidate interface {
	fmt.Stringer
	isCandidate()
}

// NonTamMoveSrcDst moves the piece at Src directly to Dest, capturing an opponent piece there.
type NonTamMoveSrcDst struct {
	Src, Dest Coord
}

// NonTamMoveSrcStepDstFinite moves the piece at Src over the occupied cell Step and then to Dest,
// using a finite (non-ranged) movement.
type NonTamMoveSrcStepDstFinite struct {
	Src, Step, Dest Coord
}

// InfAfterStep steps from Src over the occupied cell Step and plans a ranged movement up to
// PlannedDest. The sticks decide how far the piece may actually go.
type InfAfterStep struct {
	Src, Step, PlannedDest Coord
}

// TamMoveForm distinguishes the three forms of a Tam2 move.
type TamMoveForm uint8

const (
	// NoStep moves Src -> FirstDest -> SecondDest.
	NoStep TamMoveForm = iota

	// StepsDuringFormer moves Src -> Step -> FirstDest -> SecondDest.
	StepsDuringFormer

	// StepsDuringLatter moves Src -> FirstDest -> Step -> SecondDest.
	StepsDuringLatter
)

func (f TamMoveForm) String() string {
	switch f {
	case NoStep:
		return "NoStep"
	case StepsDuringFormer:
		return "StepsDuringFormer"
	case StepsDuringLatter:
		return "StepsDuringLatter"
	}
	return fmt.Sprintf("TamMoveForm(%d)", uint8(f))
}

// TamMove moves the Tam2 twice. Step is only meaningful for the stepping forms.
// Only the pair (Src, SecondDest) determines the resulting position.
type TamMove struct {
	Form                             TamMoveForm
	Src, Step, FirstDest, SecondDest Coord
}

// NonTamMoveFromHopZuo places a piece from the mover's reserve on the empty cell Dest.
type NonTamMoveFromHopZuo struct {
	Piece NonTamPiece
	Dest  Coord
}

// AfterHalfAcceptance completes a PendingAcceptance: either move to Dest, or decline and pass
// the turn.
type AfterHalfAcceptance struct {
	Dest    Coord
	Decline bool
}

// HandDecision resolves an Unresolved phase: Tymok continues the season, otherwise the season
// ends in taxot.
type HandDecision struct {
	Tymok bool
}

func (NonTamMoveSrcDst) isCandidate()           {}
func (NonTamMoveSrcStepDstFinite) isCandidate() {}
func (InfAfterStep) isCandidate()               {}
func (TamMove) isCandidate()                    {}
func (NonTamMoveFromHopZuo) isCandidate()       {}
func (AfterHalfAcceptance) isCandidate()        {}
func (HandDecision) isCandidate()               {}

func (m NonTamMoveSrcDst) String() string {
	return fmt.Sprintf("%s-%s", m.Src, m.Dest)
}

func (m NonTamMoveSrcStepDstFinite) String() string {
	return fmt.Sprintf("%s-%s-%s", m.Src, m.Step, m.Dest)
}

func (m InfAfterStep) String() string {
	return fmt.Sprintf("%s-%s-(%s)", m.Src, m.Step, m.PlannedDest)
}

func (m TamMove) String() string {
	switch m.Form {
	case StepsDuringFormer:
		return fmt.Sprintf("Tam %s-%s-%s-%s", m.Src, m.Step, m.FirstDest, m.SecondDest)
	case StepsDuringLatter:
		return fmt.Sprintf("Tam %s-%s-%s-%s", m.Src, m.FirstDest, m.Step, m.SecondDest)
	}
	return fmt.Sprintf("Tam %s-%s-%s", m.Src, m.FirstDest, m.SecondDest)
}

func (m NonTamMoveFromHopZuo) String() string {
	return fmt.Sprintf("%s@%s", m.Piece, m.Dest)
}

func (m AfterHalfAcceptance) String() string {
	if m.Decline {
		return "decline"
	}
	return fmt.Sprintf("accept %s", m.Dest)
}

func (m HandDecision) String() string {
	if m.Tymok {
		return "tymok"
	}
	return "taxot"
}

// Candidates returned by an Engine. For Start the reserve placements are in Hand and everything
// else in Board; other phases only use Board.
type Candidates struct {
	Hand, Board []Candidate
}

// All returns the hand candidates followed by the board candidates.
func (c Candidates) All() []Candidate {
	all := make([]Candidate, 0, len(c.Hand)+len(c.Board))
	all = append(all, c.Hand...)
	return append(all, c.Board...)
}

// Len returns the total number of candidates.
func (c Candidates) Len() int {
	return len(c.Hand) + len(c.Board)
}
