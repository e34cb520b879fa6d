package state

import (
	"fmt"
	"github.com/pkg/errors"
	"math/rand/v2"
	"slices"
)

// Engine generates and applies move candidates. Rules is the implementation used by the trainer.
type Engine interface {
	// Candidates returns the legal moves for the phase, in a deterministic order.
	Candidates(p Phase) (Candidates, error)

	// Apply the candidate c to the phase p. p is not modified.
	// It returns an error wrapping ErrIllegalCandidate if c is not legal for p.
	Apply(p Phase, c Candidate) (Outcome, error)
}

// ErrIllegalCandidate is returned (wrapped) by Engine.Apply for a candidate not legal in the phase.
var ErrIllegalCandidate = errors.New("candidate not legal for phase")

// Outcome of applying a candidate: either the Next phase, or an Ending if the game is over.
type Outcome struct {
	Next   Phase
	Ending *Ending

	// SeasonEnded is set when a taxot finished the season and Next starts a new one.
	SeasonEnded bool
}

// Ending of a game.
type Ending struct {
	// Victor is nil for a draw.
	Victor *Side

	// Scores at the end of the game.
	Scores [NumSides]int
}

// Draw returns whether the game ended without a victor.
func (e *Ending) Draw() bool {
	return e.Victor == nil
}

func (e *Ending) String() string {
	if e.Victor == nil {
		return fmt.Sprintf("draw, scores %v", e.Scores)
	}
	return fmt.Sprintf("%s wins, scores %v", *e.Victor, e.Scores)
}

// Rules implements Engine. The stick casts use its random source, so it is not safe for
// concurrent use.
type Rules struct {
	cfg Config
	rng *rand.Rand
}

var _ Engine = (*Rules)(nil)

// NewRules creates the rule engine. rng is used for casting sticks and choosing the first player.
func NewRules(cfg Config, rng *rand.Rand) *Rules {
	return &Rules{cfg: cfg, rng: rng}
}

// Config returns the rule set configuration.
func (r *Rules) Config() Config {
	return r.cfg
}

// NewGame starts a new game with a randomly chosen first player.
func (r *Rules) NewGame() *Start {
	return NewGame(r.cfg, Side(r.rng.IntN(NumSides)))
}

// Candidates implements Engine.
func (r *Rules) Candidates(p Phase) (Candidates, error) {
	switch phase := p.(type) {
	case *Start:
		s := &phase.Situation
		var board []Candidate
		for num := range NumCells {
			src := CoordFromNum(num)
			piece := s.Board[num]
			switch {
			case piece.IsTam():
				board = append(board, tamMoves(s, src, r.cfg.TamSteps)...)
			case piece.OwnedBy(s.WhoseTurn):
				board = append(board, pieceMoves(s, src)...)
			}
		}
		return Candidates{Hand: placements(s), Board: board}, nil
	case *PendingAcceptance:
		return Candidates{Board: acceptances(&phase.Situation, phase.Move, phase.Ciurl)}, nil
	case *Unresolved:
		return Candidates{Board: []Candidate{HandDecision{Tymok: true}, HandDecision{Tymok: false}}}, nil
	}
	return Candidates{}, errors.Errorf("unknown phase type %T", p)
}

// Apply implements Engine.
func (r *Rules) Apply(p Phase, c Candidate) (Outcome, error) {
	candidates, err := r.Candidates(p)
	if err != nil {
		return Outcome{}, err
	}
	if !slices.Contains(candidates.All(), c) {
		return Outcome{}, errors.Wrapf(ErrIllegalCandidate, "%s in %s phase", c, p.Kind())
	}
	next := p.Common().Clone()
	switch m := c.(type) {
	case NonTamMoveSrcDst:
		return r.movePiece(&next, m.Src, m.Dest), nil
	case NonTamMoveSrcStepDstFinite:
		return r.movePiece(&next, m.Src, m.Dest), nil
	case InfAfterStep:
		return Outcome{Next: &PendingAcceptance{Situation: next, Move: m, Ciurl: r.castCiurl()}}, nil
	case AfterHalfAcceptance:
		if m.Decline {
			return passTurn(&next), nil
		}
		return r.movePiece(&next, p.(*PendingAcceptance).Move.Src, m.Dest), nil
	case TamMove:
		next.set(m.Src, Piece{})
		next.set(m.SecondDest, Piece{Kind: Tam2})
		return passTurn(&next), nil
	case NonTamMoveFromHopZuo:
		hand := next.Hands[next.WhoseTurn]
		idx := slices.Index(hand, m.Piece)
		next.Hands[next.WhoseTurn] = slices.Delete(hand, idx, idx+1)
		next.set(m.Dest, NewPiece(m.Piece.Color, m.Piece.Prof, next.WhoseTurn))
		return passTurn(&next), nil
	case HandDecision:
		if m.Tymok {
			return passTurn(&next), nil
		}
		return r.taxot(&next, p.(*Unresolved).HandScore), nil
	}
	return Outcome{}, errors.Errorf("unknown candidate type %T", c)
}

// castCiurl returns the number of sticks (out of CiurlCount) that landed face up.
func (r *Rules) castCiurl() int {
	count := 0
	for range r.cfg.CiurlCount {
		if r.rng.IntN(2) == 1 {
			count++
		}
	}
	return count
}

func passTurn(s *Situation) Outcome {
	s.WhoseTurn = s.WhoseTurn.Other()
	return Outcome{Next: &Start{Situation: *s}}
}

// movePiece moves the piece at src to dest, capturing into the mover's reserve, and resolves
// the mover's hand.
func (r *Rules) movePiece(s *Situation, src, dest Coord) Outcome {
	mover := s.WhoseTurn
	before := HandScore(s.Hands[mover])
	if captured := s.At(dest); captured.Kind == NonTam2 {
		s.Hands[mover] = append(s.Hands[mover], captured.NonTam())
	}
	s.set(dest, s.At(src))
	s.set(src, Piece{})

	after := HandScore(s.Hands[mover])
	if after <= before {
		return passTurn(s)
	}
	if after >= s.Scores[mover.Other()] {
		return r.victory(s, mover)
	}
	return Outcome{Next: &Unresolved{Situation: *s, HandScore: after}}
}

// taxot ends the season: the mover takes handScore points from the opponent.
func (r *Rules) taxot(s *Situation, handScore int) Outcome {
	mover := s.WhoseTurn
	opponent := mover.Other()
	s.Scores[mover] += handScore
	s.Scores[opponent] -= handScore
	if s.Scores[opponent] <= 0 {
		return r.victory(s, mover)
	}
	if s.Season+1 >= r.cfg.NumSeasons {
		ending := &Ending{Scores: s.Scores}
		switch {
		case s.Scores[mover] > s.Scores[opponent]:
			ending.Victor = &mover
		case s.Scores[opponent] > s.Scores[mover]:
			ending.Victor = &opponent
		}
		return Outcome{Ending: ending}
	}
	// The winner of the season starts the next one.
	season := InitialSituation(r.cfg, mover)
	season.Scores = s.Scores
	season.Season = s.Season + 1
	return Outcome{Next: &Start{Situation: season}, SeasonEnded: true}
}

// victory ends the game with all points going to the victor.
func (r *Rules) victory(s *Situation, victor Side) Outcome {
	ending := &Ending{Victor: &victor}
	ending.Scores[victor] = s.Scores[ASide] + s.Scores[IASide]
	return Outcome{Ending: ending}
}
