package codec

import (
	. "github.com/cerkeai/cerkeGo/internal/state"
	"github.com/gomlx/exceptions"
)

// The action space is partitioned in disjoint bands:
//
//   - [0, 81*81): board moves, indexed src*81 + dest. Ranged moves after a step use their planned
//     destination and Tam2 moves their second destination, so all Tam2 forms with the same
//     (src, second destination) share one index.
//   - [PlacementOffset, AcceptOffset): placements from the reserve, indexed key*81 + dest, where
//     key is the ownership-free NonTamPiece.Key.
//   - [AcceptOffset, AcceptOffset+81): accepting a destination after the sticks were cast.
//   - DeclineIndex, TymokIndex and TaxotIndex.
const (
	BoardMoveBand = NumCells * NumCells
	PlacementBand = NumColors * NumProfessions * NumCells

	PlacementOffset = BoardMoveBand
	AcceptOffset    = PlacementOffset + PlacementBand
	DeclineIndex    = AcceptOffset + NumCells
	TymokIndex      = DeclineIndex + 1
	TaxotIndex      = DeclineIndex + 2

	// ActionSize is the number of indices of the action space.
	ActionSize = TaxotIndex + 1
)

// EncodeAction returns the action index of the candidate. Several candidates may share an index
// (the Tam2 move forms); DecodeAction resolves them.
func EncodeAction(c Candidate) int {
	switch m := c.(type) {
	case NonTamMoveSrcDst:
		return boardIndex(m.Src, m.Dest)
	case NonTamMoveSrcStepDstFinite:
		return boardIndex(m.Src, m.Dest)
	case InfAfterStep:
		return boardIndex(m.Src, m.PlannedDest)
	case TamMove:
		return boardIndex(m.Src, m.SecondDest)
	case NonTamMoveFromHopZuo:
		return PlacementOffset + m.Piece.Key()*NumCells + m.Dest.Num()
	case AfterHalfAcceptance:
		if m.Decline {
			return DeclineIndex
		}
		return AcceptOffset + m.Dest.Num()
	case HandDecision:
		if m.Tymok {
			return TymokIndex
		}
		return TaxotIndex
	}
	exceptions.Panicf("codec: unknown candidate type %T", c)
	return -1
}

func boardIndex(src, dest Coord) int {
	return src.Num()*NumCells + dest.Num()
}

// DecodeAction returns the first candidate, in engine order, whose index is idx.
// It panics if no candidate matches: the caller must only decode indices of the legal mask.
func DecodeAction(idx int, candidates Candidates) Candidate {
	if idx < 0 || idx >= ActionSize {
		exceptions.Panicf("codec: action index %d out of range [0, %d)", idx, ActionSize)
	}
	// Each band holds candidates of a single list.
	list := candidates.Board
	if idx >= PlacementOffset && idx < AcceptOffset {
		list = candidates.Hand
	}
	for _, c := range list {
		if EncodeAction(c) == idx {
			return c
		}
	}
	exceptions.Panicf("codec: action index %d (%s) matches none of the %d candidates",
		idx, DescribeAction(idx), candidates.Len())
	return nil
}

// unresolvedMask holds the two canonical hand decision slots.
var unresolvedMask = func() []bool {
	mask := make([]bool, ActionSize)
	mask[TymokIndex] = true
	mask[TaxotIndex] = true
	return mask
}()

// LegalMask returns the mask of the action indices reachable by the candidates of the phase.
// For Unresolved phases it is always the tymok/taxot pair.
func LegalMask(p Phase, candidates Candidates) []bool {
	mask := make([]bool, ActionSize)
	if p.Kind() == KindUnresolved {
		copy(mask, unresolvedMask)
		return mask
	}
	for _, c := range candidates.Hand {
		mask[EncodeAction(c)] = true
	}
	for _, c := range candidates.Board {
		mask[EncodeAction(c)] = true
	}
	return mask
}

// LegalActions returns the sorted indices set in the mask.
func LegalActions(mask []bool) []int {
	var actions []int
	for idx, legal := range mask {
		if legal {
			actions = append(actions, idx)
		}
	}
	return actions
}

// DescribeAction returns a human-readable description of the action index.
func DescribeAction(idx int) string {
	switch {
	case idx < 0 || idx >= ActionSize:
		return "invalid"
	case idx < PlacementOffset:
		return CoordFromNum(idx/NumCells).String() + "-" + CoordFromNum(idx%NumCells).String()
	case idx < AcceptOffset:
		idx -= PlacementOffset
		return NonTamPieceFromKey(idx/NumCells).String() + "@" + CoordFromNum(idx%NumCells).String()
	case idx < DeclineIndex:
		return "accept " + CoordFromNum(idx-AcceptOffset).String()
	case idx == DeclineIndex:
		return "decline"
	case idx == TymokIndex:
		return "tymok"
	}
	return "taxot"
}
