package state

import (
	"github.com/cerkeai/cerkeGo/internal/generics"
	"iter"
)

// movement of a profession: finite displacements land exactly at src+d, ranged ones slide
// along d until blocked.
type movement struct {
	finite, ranged []Direction
}

var (
	up         = Direction{-1, 0}
	down       = Direction{1, 0}
	vertical   = []Direction{up, down}
	horizontal = []Direction{{0, -1}, {0, 1}}
	kaunJumps  = []Direction{Diagonal[0].Scale(2), Diagonal[1].Scale(2), Diagonal[2].Scale(2), Diagonal[3].Scale(2)}
)

// movementOf returns the movement of a profession for the given side. Only Kauk2 depends on the
// side: it moves forward, which is up for ASide.
func movementOf(prof Profession, side Side) movement {
	switch prof {
	case Kauk2:
		if side == ASide {
			return movement{finite: []Direction{up}}
		}
		return movement{finite: []Direction{down}}
	case Nuak1:
		return movement{finite: horizontal, ranged: vertical}
	case Gua2:
		return movement{ranged: Orthogonal}
	case Kaun1:
		return movement{finite: kaunJumps}
	case Dau2:
		return movement{finite: Diagonal}
	case Maun1:
		return movement{ranged: Diagonal}
	case Kua2:
		return movement{finite: vertical, ranged: horizontal}
	case Tuk2:
		return movement{finite: Orthogonal}
	}
	// Uai1 and Io.
	return movement{finite: AllDirections}
}

// canLand returns whether a piece of side may end its move at c: the cell is empty or holds an
// opponent piece, which is then captured.
func canLand(s *Situation, side Side, c Coord) bool {
	p := s.At(c)
	return p.Empty() || (p.Kind == NonTam2 && p.Side != side)
}

// ray yields the cells from start along d that a piece of side moving from src can reach.
// The src cell counts as empty, since the piece left it. The ray stops after an opponent piece
// and before any other occupied cell.
func ray(s *Situation, side Side, src, start Coord, d Direction) iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		for c := start; c.Valid(); c = c.Add(d) {
			p := s.At(c)
			if c == src || p.Empty() {
				if !yield(c) {
					return
				}
				continue
			}
			if p.Kind == NonTam2 && p.Side != side {
				yield(c)
			}
			return
		}
	}
}

// pieceMoves lists the board moves of the non-Tam2 piece at src. At most one candidate is
// generated per destination: the first one in the order direct moves, finite step moves,
// ranged step moves.
func pieceMoves(s *Situation, src Coord) []Candidate {
	p := s.At(src)
	side := p.Side
	m := movementOf(p.Prof, side)
	seen := generics.MakeSet[Coord]()
	var moves []Candidate
	add := func(dest Coord, c Candidate) {
		if dest == src || seen.Has(dest) {
			return
		}
		seen.Insert(dest)
		moves = append(moves, c)
	}

	for _, d := range m.finite {
		if dest := src.Add(d); dest.Valid() && canLand(s, side, dest) {
			add(dest, NonTamMoveSrcDst{Src: src, Dest: dest})
		}
	}
	for _, d := range m.ranged {
		for dest := range ray(s, side, src, src.Add(d), d) {
			add(dest, NonTamMoveSrcDst{Src: src, Dest: dest})
		}
	}
	for _, step := range src.Neighbors() {
		if s.At(step).Empty() {
			continue
		}
		for _, d := range m.finite {
			if dest := step.Add(d); dest.Valid() && canLand(s, side, dest) {
				add(dest, NonTamMoveSrcStepDstFinite{Src: src, Step: step, Dest: dest})
			}
		}
		for _, d := range m.ranged {
			for dest := range ray(s, side, src, step.Add(d), d) {
				add(dest, InfAfterStep{Src: src, Step: step, PlannedDest: dest})
			}
		}
	}
	return moves
}

// tamMoves lists the moves of the Tam2 at src: two king steps over empty cells, optionally
// stepping over an occupied cell before or after the first one. The Tam2 never ends where it
// started.
func tamMoves(s *Situation, src Coord, withSteps bool) []Candidate {
	free := func(c Coord) bool { return c != src && s.At(c).Empty() }
	occupied := func(c Coord) bool { return c != src && !s.At(c).Empty() }
	var moves []Candidate
	for _, first := range src.Neighbors() {
		if !free(first) {
			continue
		}
		for _, second := range first.Neighbors() {
			if free(second) {
				moves = append(moves, TamMove{Form: NoStep, Src: src, FirstDest: first, SecondDest: second})
			}
		}
	}
	if !withSteps {
		return moves
	}
	for _, step := range src.Neighbors() {
		if !occupied(step) {
			continue
		}
		for _, first := range step.Neighbors() {
			if !free(first) {
				continue
			}
			for _, second := range first.Neighbors() {
				if free(second) {
					moves = append(moves, TamMove{
						Form: StepsDuringFormer, Src: src, Step: step, FirstDest: first, SecondDest: second})
				}
			}
		}
	}
	for _, first := range src.Neighbors() {
		if !free(first) {
			continue
		}
		for _, step := range first.Neighbors() {
			if !occupied(step) {
				continue
			}
			for _, second := range step.Neighbors() {
				if free(second) {
					moves = append(moves, TamMove{
						Form: StepsDuringLatter, Src: src, Step: step, FirstDest: first, SecondDest: second})
				}
			}
		}
	}
	return moves
}

// placements lists the reserve placements of the side to move: each distinct reserve piece on
// each empty cell.
func placements(s *Situation) []Candidate {
	hist := s.HandHistogram(s.WhoseTurn)
	var moves []Candidate
	for key, count := range hist {
		if count == 0 {
			continue
		}
		piece := NonTamPieceFromKey(key)
		for num := range NumCells {
			if s.Board[num].Empty() {
				moves = append(moves, NonTamMoveFromHopZuo{Piece: piece, Dest: CoordFromNum(num)})
			}
		}
	}
	return moves
}

// acceptances lists the destinations allowed after casting ciurl sticks for an InfAfterStep,
// followed by the decline option.
func acceptances(s *Situation, m InfAfterStep, ciurl int) []Candidate {
	var moves []Candidate
	if d, distance, ok := m.Step.unitTowards(m.PlannedDest); ok {
		limit := min(distance, ciurl)
		side := s.At(m.Src).Side
		i := 0
		for dest := range ray(s, side, m.Src, m.Step.Add(d), d) {
			i++
			if i > limit {
				break
			}
			if dest != m.Src {
				moves = append(moves, AfterHalfAcceptance{Dest: dest})
			}
		}
	}
	return append(moves, AfterHalfAcceptance{Decline: true})
}

// HandScore returns the value of the scoring hands (yaku) formed by a reserve:
// 2 points for each profession other than Kauk2 held at least twice, one point per Kauk2 beyond
// the second, 5 points for holding an Io and 3 points for holding at least 5 pieces.
func HandScore(hand []NonTamPiece) int {
	var counts [NumProfessions]int
	for _, p := range hand {
		counts[p.Prof]++
	}
	score := 0
	for prof, n := range counts {
		switch {
		case Profession(prof) == Kauk2:
			if n >= 3 {
				score += n - 2
			}
		case n >= 2:
			score += 2
		}
	}
	if counts[Io] > 0 {
		score += 5
	}
	if len(hand) >= 5 {
		score += 3
	}
	return score
}
