package state

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestCoords(t *testing.T) {
	for num := range NumCells {
		c := CoordFromNum(num)
		require.True(t, c.Valid())
		require.Equal(t, num, c.Num())
		parsed, err := ParseCoord(c.String())
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}
	c, err := ParseCoord("zo")
	require.NoError(t, err)
	assert.Equal(t, Coord{RowO, ColumnZ}, c)
	c, err = ParseCoord("PIA")
	require.NoError(t, err)
	assert.Equal(t, Coord{RowIA, ColumnP}, c)
	_, err = ParseCoord("QA")
	require.Error(t, err)
	_, err = ParseCoord("KQ")
	require.ErrorContains(t, err, `invalid row in coordinate "KQ"`)
	_, err = ParseCoord(" z")
	require.ErrorContains(t, err, `invalid coordinate "Z"`)
	// Parsing errors carry a stack trace, like the other engine errors.
	_, hasStack := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, hasStack)

	assert.Len(t, Coord{RowA, ColumnK}.Neighbors(), 3)
	assert.Len(t, Coord{RowO, ColumnZ}.Neighbors(), 8)
	assert.False(t, Coord{RowA, ColumnK}.Add(up).Valid())
}

func TestInitialSituation(t *testing.T) {
	cfg := DefaultConfig()
	s := InitialSituation(cfg, IASide)
	assert.Equal(t, IASide, s.WhoseTurn)
	assert.Equal(t, [NumSides]int{20, 20}, s.Scores)
	assert.True(t, s.At(Coord{RowO, ColumnZ}).IsTam())

	var perSide [NumSides]int
	var perKey [NumColors * NumProfessions]int
	for _, p := range s.Board {
		if p.Kind == NonTam2 {
			perSide[p.Side]++
			perKey[p.NonTam().Key()]++
		}
	}
	assert.Equal(t, [NumSides]int{24, 24}, perSide)
	// Each color has half of every profession.
	for prof := range Profession(NumProfessions) {
		assert.Equal(t, perKey[NonTamPiece{Kok1, prof}.Key()], perKey[NonTamPiece{Huok2, prof}.Key()], "profession %s", prof)
	}
	assert.Equal(t, 8, perKey[NonTamPiece{Kok1, Kauk2}.Key()])
	assert.Equal(t, 1, perKey[NonTamPiece{Huok2, Io}.Key()])

	assert.Equal(t, NewPiece(Kok1, Kua2, IASide), s.At(Coord{RowA, ColumnK}))
	assert.Equal(t, NewPiece(Kok1, Kua2, ASide), s.At(Coord{RowIA, ColumnP}))
	assert.Equal(t, NewPiece(Huok2, Nuak1, ASide), s.At(Coord{RowAI, ColumnZ}))
	assert.Equal(t, NewPiece(Huok2, Gua2, IASide), s.At(Coord{RowE, ColumnM}))
	assert.True(t, s.At(Coord{RowE, ColumnN}).Empty())
}

// emptySituation has only the Tam2 at its initial place.
func emptySituation(turn Side) Situation {
	s := Situation{WhoseTurn: turn, Scores: [NumSides]int{20, 20}}
	s.set(Coord{RowO, ColumnZ}, Piece{Kind: Tam2})
	return s
}

func TestStartCandidates(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	start := NewGame(rules.Config(), ASide)
	candidates, err := rules.Candidates(start)
	require.NoError(t, err)
	assert.Empty(t, candidates.Hand)
	board := candidates.Board
	assert.Contains(t, board, Candidate(NonTamMoveSrcDst{Src: Coord{RowAI, ColumnK}, Dest: Coord{RowY, ColumnK}}))
	assert.NotContains(t, board, Candidate(NonTamMoveSrcDst{Src: Coord{RowAI, ColumnK}, Dest: Coord{RowAU, ColumnK}}))
	// Only pieces of the mover or the Tam2 move.
	for _, c := range board {
		switch m := c.(type) {
		case NonTamMoveSrcDst:
			require.True(t, start.At(m.Src).OwnedBy(ASide), "%s", m)
		case TamMove:
			require.Equal(t, Coord{RowO, ColumnZ}, m.Src)
			require.NotEqual(t, m.Src, m.SecondDest)
		}
	}
	// No duplicated candidates.
	for ii, c := range board {
		require.NotContains(t, board[ii+1:], c)
	}
}

func TestRangedMovesAndCapture(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	s := emptySituation(ASide)
	gua := Coord{RowU, ColumnK}
	s.set(gua, NewPiece(Kok1, Gua2, ASide))
	target := Coord{RowA, ColumnK}
	s.set(target, NewPiece(Huok2, Kauk2, IASide))
	start := &Start{Situation: s}

	candidates, err := rules.Candidates(start)
	require.NoError(t, err)
	var gua2Moves []Candidate
	for _, c := range candidates.Board {
		if m, ok := c.(NonTamMoveSrcDst); ok && m.Src == gua {
			gua2Moves = append(gua2Moves, c)
		}
	}
	// 3 up (ending in a capture), 5 down and 8 to the right.
	assert.Len(t, gua2Moves, 16)

	outcome, err := rules.Apply(start, NonTamMoveSrcDst{Src: gua, Dest: target})
	require.NoError(t, err)
	require.Nil(t, outcome.Ending)
	next := outcome.Next.(*Start)
	assert.Equal(t, IASide, next.WhoseTurn)
	assert.Equal(t, []NonTamPiece{{Huok2, Kauk2}}, next.Hands[ASide])
	assert.Equal(t, NewPiece(Kok1, Gua2, ASide), next.At(target))
	assert.True(t, next.At(gua).Empty())
	// The original phase is untouched.
	assert.True(t, start.At(target).OwnedBy(IASide))
	assert.Empty(t, start.Hands[ASide])
}

func TestPlacement(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	s := emptySituation(IASide)
	s.Hands[IASide] = []NonTamPiece{{Kok1, Tuk2}, {Kok1, Tuk2}, {Huok2, Io}}
	start := &Start{Situation: s}
	candidates, err := rules.Candidates(start)
	require.NoError(t, err)
	// 2 distinct pieces on 80 empty cells.
	assert.Len(t, candidates.Hand, 160)

	dest := Coord{RowY, ColumnT}
	outcome, err := rules.Apply(start, NonTamMoveFromHopZuo{Piece: NonTamPiece{Kok1, Tuk2}, Dest: dest})
	require.NoError(t, err)
	next := outcome.Next.(*Start)
	assert.Equal(t, NewPiece(Kok1, Tuk2, IASide), next.At(dest))
	assert.Equal(t, []NonTamPiece{{Kok1, Tuk2}, {Huok2, Io}}, next.Hands[IASide])
	assert.Equal(t, ASide, next.WhoseTurn)
}

func TestInfAfterStep(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(7, 0)))
	s := emptySituation(ASide)
	src, step := Coord{RowU, ColumnK}, Coord{RowU, ColumnL}
	s.set(src, NewPiece(Kok1, Gua2, ASide))
	s.set(step, NewPiece(Kok1, Kauk2, ASide))
	start := &Start{Situation: s}

	move := InfAfterStep{Src: src, Step: step, PlannedDest: Coord{RowA, ColumnL}}
	candidates, err := rules.Candidates(start)
	require.NoError(t, err)
	require.Contains(t, candidates.Board, Candidate(move))

	for range 20 {
		outcome, err := rules.Apply(start, move)
		require.NoError(t, err)
		pending := outcome.Next.(*PendingAcceptance)
		require.Equal(t, move, pending.Move)
		require.GreaterOrEqual(t, pending.Ciurl, 0)
		require.LessOrEqual(t, pending.Ciurl, 5)

		accepts, err := rules.Candidates(pending)
		require.NoError(t, err)
		require.Empty(t, accepts.Hand)
		require.Len(t, accepts.Board, min(3, pending.Ciurl)+1)
		require.Equal(t, Candidate(AfterHalfAcceptance{Decline: true}), accepts.Board[len(accepts.Board)-1])

		declined, err := rules.Apply(pending, AfterHalfAcceptance{Decline: true})
		require.NoError(t, err)
		require.Equal(t, IASide, declined.Next.Common().WhoseTurn)
		require.Equal(t, s.Board, declined.Next.Common().Board)

		if pending.Ciurl >= 1 {
			dest := Coord{RowI, ColumnL}
			accepted, err := rules.Apply(pending, AfterHalfAcceptance{Dest: dest})
			require.NoError(t, err)
			require.Equal(t, NewPiece(Kok1, Gua2, ASide), accepted.Next.Common().At(dest))
			require.True(t, accepted.Next.Common().At(src).Empty())
		}
	}
}

func TestTamMoves(t *testing.T) {
	s := emptySituation(ASide)
	tam := Coord{RowO, ColumnZ}
	s.set(Coord{RowO, ColumnX}, NewPiece(Kok1, Kauk2, IASide))
	start := &Start{Situation: s}
	forms := map[TamMoveForm]int{}
	for _, c := range tamMoves(&start.Situation, tam, true) {
		m := c.(TamMove)
		forms[m.Form]++
		require.NotEqual(t, tam, m.SecondDest)
		require.True(t, start.At(m.SecondDest).Empty())
	}
	assert.Greater(t, forms[NoStep], 0)
	assert.Greater(t, forms[StepsDuringFormer], 0)
	assert.Greater(t, forms[StepsDuringLatter], 0)
	assert.Len(t, tamMoves(&start.Situation, tam, false), forms[NoStep])

	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	dest := Coord{RowY, ColumnZ}.Add(Direction{1, 0})
	outcome, err := rules.Apply(start, TamMove{Form: NoStep, Src: tam, FirstDest: Coord{RowY, ColumnZ}, SecondDest: dest})
	require.NoError(t, err)
	assert.True(t, outcome.Next.Common().At(dest).IsTam())
	assert.True(t, outcome.Next.Common().At(tam).Empty())
}

func TestHandScore(t *testing.T) {
	for _, tc := range []struct {
		name string
		hand []NonTamPiece
		want int
	}{
		{"empty", nil, 0},
		{"single", []NonTamPiece{{Kok1, Tuk2}}, 0},
		{"pair", []NonTamPiece{{Kok1, Tuk2}, {Huok2, Tuk2}}, 2},
		{"kauk2", []NonTamPiece{{Kok1, Kauk2}, {Kok1, Kauk2}, {Huok2, Kauk2}}, 1},
		{"io", []NonTamPiece{{Kok1, Io}}, 5},
		{"five", []NonTamPiece{{Kok1, Tuk2}, {Huok2, Tuk2}, {Kok1, Gua2}, {Kok1, Kauk2}, {Kok1, Dau2}}, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HandScore(tc.hand))
		})
	}
}

// unresolvedSituation returns a Start where ASide captures a Tuk2 completing a pair.
func unresolvedSituation() (*Start, Candidate) {
	s := emptySituation(ASide)
	s.Hands[ASide] = []NonTamPiece{{Kok1, Tuk2}}
	src, dest := Coord{RowO, ColumnK}, Coord{RowU, ColumnK}
	s.set(src, NewPiece(Kok1, Tuk2, ASide))
	s.set(dest, NewPiece(Huok2, Tuk2, IASide))
	return &Start{Situation: s}, NonTamMoveSrcDst{Src: src, Dest: dest}
}

func TestHandResolution(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	start, capture := unresolvedSituation()
	outcome, err := rules.Apply(start, capture)
	require.NoError(t, err)
	unresolved := outcome.Next.(*Unresolved)
	assert.Equal(t, 2, unresolved.HandScore)
	assert.Equal(t, ASide, unresolved.WhoseTurn)

	candidates, err := rules.Candidates(unresolved)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{HandDecision{Tymok: true}, HandDecision{Tymok: false}}, candidates.Board)

	// Tymok: game continues.
	outcome, err = rules.Apply(unresolved, HandDecision{Tymok: true})
	require.NoError(t, err)
	assert.Equal(t, KindStart, outcome.Next.Kind())
	assert.Equal(t, IASide, outcome.Next.Common().WhoseTurn)

	// Taxot: season ends, points transferred.
	outcome, err = rules.Apply(unresolved, HandDecision{Tymok: false})
	require.NoError(t, err)
	require.True(t, outcome.SeasonEnded)
	next := outcome.Next.(*Start)
	assert.Equal(t, [NumSides]int{22, 18}, next.Scores)
	assert.Equal(t, 1, next.Season)
	assert.Equal(t, ASide, next.WhoseTurn)
	assert.Empty(t, next.Hands[ASide])
	assert.Equal(t, InitialSituation(rules.Config(), ASide).Board, next.Board)

	// Taxot on the last season ends the game.
	last := unresolved.Clone().(*Unresolved)
	last.Season = 3
	outcome, err = rules.Apply(last, HandDecision{Tymok: false})
	require.NoError(t, err)
	require.NotNil(t, outcome.Ending)
	require.Nil(t, outcome.Next)
	require.NotNil(t, outcome.Ending.Victor)
	assert.Equal(t, ASide, *outcome.Ending.Victor)

	// Hand covering the opponent's score wins immediately.
	start.Scores = [NumSides]int{38, 2}
	outcome, err = rules.Apply(start, capture)
	require.NoError(t, err)
	require.NotNil(t, outcome.Ending)
	assert.Equal(t, ASide, *outcome.Ending.Victor)
	assert.Equal(t, [NumSides]int{40, 0}, outcome.Ending.Scores)
}

func TestIllegalCandidate(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	start := NewGame(rules.Config(), ASide)
	_, err := rules.Apply(start, HandDecision{Tymok: true})
	require.ErrorIs(t, err, ErrIllegalCandidate)
	_, err = rules.Apply(start, NonTamMoveSrcDst{Src: Coord{RowA, ColumnK}, Dest: Coord{RowU, ColumnK}})
	require.ErrorIs(t, err, ErrIllegalCandidate)
}

func TestRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	rules := NewRules(DefaultConfig(), rng)
	total := 2 * rules.Config().InitialScore
	for range 3 {
		var phase Phase = rules.NewGame()
		for range 1000 {
			s := phase.Common()
			pieces := 0
			for _, p := range s.Board {
				if p.Kind == NonTam2 {
					pieces++
				}
			}
			require.Equal(t, 48, pieces+len(s.Hands[ASide])+len(s.Hands[IASide]))
			require.Equal(t, total, s.Scores[ASide]+s.Scores[IASide])

			candidates, err := rules.Candidates(phase)
			require.NoError(t, err)
			all := candidates.All()
			require.NotEmpty(t, all)
			c := all[rng.IntN(len(all))]
			before := phase.Clone()
			outcome, err := rules.Apply(phase, c)
			require.NoError(t, err)
			require.Equal(t, before.Common().Board, phase.Common().Board)
			if outcome.Ending != nil {
				require.Equal(t, total, outcome.Ending.Scores[ASide]+outcome.Ending.Scores[IASide])
				break
			}
			require.True(t, slices.Contains([]PhaseKind{KindStart, KindPendingAcceptance, KindUnresolved}, outcome.Next.Kind()))
			phase = outcome.Next
		}
	}
}
