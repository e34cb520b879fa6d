package codec

import (
	. "github.com/cerkeai/cerkeGo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand/v2"
	"testing"
)

func TestSizes(t *testing.T) {
	assert.Equal(t, 42*81+2*2*(2+9+3+3+3+3+3+3+3+2), StateSize)
	assert.Equal(t, 3538, StateSize)
	assert.Equal(t, 20*81+81*81+81+3, ActionSize)
	assert.Equal(t, 8265, ActionSize)
	assert.Equal(t, 8181, AcceptOffset)
	assert.Equal(t, [20]int{0, 2, 11, 14, 17, 20, 23, 26, 29, 32, 34, 36, 45, 48, 51, 54, 57, 60, 63, 66}, KeyOffset)
}

func TestInitialFeatures(t *testing.T) {
	start := NewGame(DefaultConfig(), IASide)
	want := []int{
		26, 67, 107, 154, 197, 248, 285, 329, 372, 405, 442, 502, 528, 586, 622, 670, 704, 751,
		777, 819, 861, 903, 944, 997, 1039, 1081, 1123, 1174, 1216, 1258, 1300, 1342, 1384, 1426,
		1468, 1510, 1552, 1594, 1636, 1678, 1721, 1762, 1804, 1846, 1888, 1930, 1972, 2014, 2056,
		2098, 2140, 2182, 2224, 2266, 2279, 2321, 2363, 2405, 2446, 2479, 2521, 2563, 2605, 2663,
		2700, 2770, 2786, 2854, 2860, 2938, 2942, 2989, 3040, 3081, 3121, 3168, 3211, 3242, 3279,
		3323, 3366, 3402, 3404, 3413, 3416, 3419, 3422, 3425, 3428, 3431, 3434, 3436, 3438, 3447,
		3450, 3453, 3456, 3459, 3462, 3465, 3468, 3470, 3472, 3481, 3484, 3487, 3490, 3493, 3496,
		3499, 3502, 3504, 3506, 3515, 3518, 3521, 3524, 3527, 3530, 3533, 3536,
	}
	require.Equal(t, want, ActiveFeatures(start))

	features := EncodeState(start)
	require.Len(t, features, StateSize)
	var got []int
	for idx, v := range features {
		if v != 0 {
			require.Equal(t, float32(1), v)
			got = append(got, idx)
		}
	}
	require.Equal(t, want, got)
}

func TestPerspectiveFlip(t *testing.T) {
	cfg := DefaultConfig()
	a := EncodeState(NewGame(cfg, ASide))
	ia := EncodeState(NewGame(cfg, IASide))
	require.NotEqual(t, a, ia)
	for num := range NumCells {
		cellA := a[num*CellValues : (num+1)*CellValues]
		cellIA := ia[num*CellValues : (num+1)*CellValues]
		// Occupancy is the same from both perspectives.
		assert.Equal(t, cellA[EmptyCell], cellIA[EmptyCell])
		assert.Equal(t, cellA[TamCell], cellIA[TamCell])
		// Ownership flips.
		for key := range NumColors * NumProfessions {
			assert.Equal(t, cellA[key], cellIA[key+NumColors*NumProfessions], "cell %s", CoordFromNum(num))
		}
	}
}

func TestReserveHistogram(t *testing.T) {
	start := NewGame(DefaultConfig(), ASide)
	start.Hands[ASide] = []NonTamPiece{{Huok2, Kauk2}, {Huok2, Kauk2}, {Kok1, Io}, {Kok1, Io}}
	start.Hands[IASide] = []NonTamPiece{{Kok1, Tuk2}}
	features := EncodeState(start)

	mine := BoardFeatures
	theirs := BoardFeatures + ReserveFeatures
	huokKauk := NonTamPiece{Huok2, Kauk2}.Key()
	assert.Equal(t, float32(1), features[mine+KeyOffset[huokKauk]+2])
	assert.Equal(t, float32(0), features[mine+KeyOffset[huokKauk]])
	// Counts beyond the capacity are clamped to the last bucket.
	kokIo := NonTamPiece{Kok1, Io}.Key()
	assert.Equal(t, float32(1), features[mine+KeyOffset[kokIo]+1])
	kokTuk := NonTamPiece{Kok1, Tuk2}.Key()
	assert.Equal(t, float32(1), features[theirs+KeyOffset[kokTuk]+1])
	assert.Equal(t, float32(1), features[mine+KeyOffset[kokTuk]])
	assert.Len(t, ActiveFeatures(start), NumCells+40)
}

func TestEncodeAction(t *testing.T) {
	src, dest := Coord{RowAI, ColumnK}, Coord{RowY, ColumnK}
	assert.Equal(t, src.Num()*81+dest.Num(), EncodeAction(NonTamMoveSrcDst{Src: src, Dest: dest}))
	assert.Equal(t, src.Num()*81+dest.Num(), EncodeAction(InfAfterStep{Src: src, Step: Coord{RowAI, ColumnL}, PlannedDest: dest}))
	tam := Coord{RowO, ColumnZ}
	assert.Equal(t,
		EncodeAction(TamMove{Form: NoStep, Src: tam, FirstDest: Coord{RowY, ColumnZ}, SecondDest: dest}),
		EncodeAction(TamMove{Form: StepsDuringLatter, Src: tam, Step: Coord{RowAI, ColumnX}, FirstDest: Coord{RowY, ColumnX}, SecondDest: dest}))
	assert.Equal(t, 6561+(10+9)*81+dest.Num(),
		EncodeAction(NonTamMoveFromHopZuo{Piece: NonTamPiece{Huok2, Io}, Dest: dest}))
	assert.Equal(t, 8181+dest.Num(), EncodeAction(AfterHalfAcceptance{Dest: dest}))
	assert.Equal(t, 8262, EncodeAction(AfterHalfAcceptance{Decline: true}))
	assert.Equal(t, 8263, EncodeAction(HandDecision{Tymok: true}))
	assert.Equal(t, 8264, EncodeAction(HandDecision{Tymok: false}))
}

func TestUnresolvedMask(t *testing.T) {
	p := &Unresolved{Situation: InitialSituation(DefaultConfig(), ASide), HandScore: 3}
	mask := LegalMask(p, Candidates{Board: []Candidate{HandDecision{Tymok: true}, HandDecision{Tymok: false}}})
	assert.Equal(t, []int{TymokIndex, TaxotIndex}, LegalActions(mask))
	// The constant mask is not shared.
	mask[0] = true
	assert.Equal(t, []int{TymokIndex, TaxotIndex}, LegalActions(LegalMask(p, Candidates{})))
}

func TestDecodeMaskedOut(t *testing.T) {
	rules := NewRules(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	start := rules.NewGame()
	candidates, err := rules.Candidates(start)
	require.NoError(t, err)
	mask := LegalMask(start, candidates)
	require.False(t, mask[TymokIndex])
	require.Panics(t, func() { DecodeAction(TymokIndex, candidates) })
	require.Panics(t, func() { DecodeAction(ActionSize, candidates) })
	require.Panics(t, func() { DecodeAction(-1, candidates) })
}

// TestRandomPlay checks the bijection and mask coverage properties on all candidates of the phases
// of random games, and that decoding only ever happens on masked-in indices.
func TestRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 0))
	rules := NewRules(DefaultConfig(), rng)
	kinds := map[PhaseKind]int{}
	for range 3 {
		var phase Phase = rules.NewGame()
		for range 150 {
			kinds[phase.Kind()]++
			require.Len(t, EncodeState(phase), StateSize)
			candidates, err := rules.Candidates(phase)
			require.NoError(t, err)
			mask := LegalMask(phase, candidates)
			for _, c := range candidates.All() {
				idx := EncodeAction(c)
				require.True(t, idx >= 0 && idx < ActionSize)
				require.True(t, mask[idx], "candidate %s -> %d not in mask", c, idx)
				decoded := DecodeAction(idx, candidates)
				require.Equal(t, idx, EncodeAction(decoded))
				if tam, ok := c.(TamMove); ok {
					// Tam2 forms collapse, but lead to the same position.
					got := decoded.(TamMove)
					require.Equal(t, tam.Src, got.Src)
					require.Equal(t, tam.SecondDest, got.SecondDest)
				} else {
					require.Equal(t, c, decoded)
				}
			}
			// Every index in the mask decodes.
			legal := LegalActions(mask)
			require.NotEmpty(t, legal)
			for _, idx := range legal {
				require.NotPanics(t, func() { DecodeAction(idx, candidates) })
			}

			idx := legal[rng.IntN(len(legal))]
			outcome, err := rules.Apply(phase, DecodeAction(idx, candidates))
			require.NoError(t, err)
			if outcome.Ending != nil {
				break
			}
			phase = outcome.Next
		}
	}
	assert.Greater(t, kinds[KindStart], 0)
	assert.Greater(t, kinds[KindPendingAcceptance], 0)
}

func TestEncodeBatch(t *testing.T) {
	cfg := DefaultConfig()
	phases := []Phase{NewGame(cfg, ASide), NewGame(cfg, IASide), &Unresolved{Situation: InitialSituation(cfg, ASide)}}
	batch := EncodeBatch(phases)
	require.Len(t, batch, 3)
	for ii, p := range phases {
		require.Equal(t, EncodeState(p), batch[ii])
	}
	assert.Equal(t, batch[0], batch[2])
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "KAI-KY", DescribeAction(EncodeAction(NonTamMoveSrcDst{Src: Coord{RowAI, ColumnK}, Dest: Coord{RowY, ColumnK}})))
	assert.Equal(t, "decline", DescribeAction(DeclineIndex))
	assert.Equal(t, "taxot", DescribeAction(TaxotIndex))
	assert.Equal(t, "KA: empty", DescribeFeature(EmptyCell))
	assert.Equal(t, "reserve of opponent: 0 x Kok1 Nuak1", DescribeFeature(BoardFeatures+ReserveFeatures))
}
