// Package codec converts Cerke phases into fixed-size feature vectors and move candidates into
// indices of a fixed-size flat action space, plus the legality masks over that space.
//
// Features are always viewed from the perspective of the player whose turn it is: the same
// physical position yields different vectors depending on whose turn it is.
package codec

import (
	"fmt"
	. "github.com/cerkeai/cerkeGo/internal/state"
	"github.com/gomlx/exceptions"
	"golang.org/x/sync/errgroup"
	"runtime"
)

const (
	// CellValues is the number of one-hot values per cell: 20 piece kinds times 2 ownerships,
	// empty and Tam2.
	CellValues = 2*NumColors*NumProfessions + 2

	// EmptyCell is the cell value of an empty cell.
	EmptyCell = CellValues - 2

	// TamCell is the cell value of the Tam2.
	TamCell = CellValues - 1

	// BoardFeatures is the size of the board segment of the features.
	BoardFeatures = CellValues * NumCells

	// ReserveFeatures is the size of one player's reserve histogram.
	ReserveFeatures = 2 * (2 + 9 + 3 + 3 + 3 + 3 + 3 + 3 + 3 + 2)

	// StateSize is the length of the feature vector.
	StateSize = BoardFeatures + 2*ReserveFeatures
)

// ReserveCapacity is the number of histogram buckets per profession: a count c of pieces of a
// given color and profession sets bucket min(c, capacity-1).
var ReserveCapacity = [NumProfessions]int{2, 9, 3, 3, 3, 3, 3, 3, 3, 2}

// KeyOffset maps a NonTamPiece.Key to the offset of its histogram buckets within a reserve segment.
var KeyOffset [NumColors * NumProfessions]int

func init() {
	offset := 0
	for key := range KeyOffset {
		KeyOffset[key] = offset
		offset += ReserveCapacity[key%NumProfessions]
	}
	if offset != ReserveFeatures {
		exceptions.Panicf("reserve histogram has %d buckets, expected %d", offset, ReserveFeatures)
	}
}

// CellValue returns the one-hot value of a cell seen by the player turn.
// Non-Tam2 pieces take color*10 + profession, plus 20 when they belong to turn.
func CellValue(p Piece, turn Side) int {
	switch p.Kind {
	case NoPiece:
		return EmptyCell
	case Tam2:
		return TamCell
	}
	value := p.NonTam().Key()
	if p.Side == turn {
		value += NumColors * NumProfessions
	}
	return value
}

// ActiveFeatures returns the sorted indices of the features set to 1 for the phase.
// There are always NumCells + 2*20 of them.
func ActiveFeatures(p Phase) []int {
	s := p.Common()
	turn := s.WhoseTurn
	active := make([]int, 0, NumCells+2*NumColors*NumProfessions)
	for num, piece := range s.Board {
		active = append(active, num*CellValues+CellValue(piece, turn))
	}
	for ii, side := range []Side{turn, turn.Other()} {
		offset := BoardFeatures + ii*ReserveFeatures
		hist := s.HandHistogram(side)
		for key, count := range hist {
			capacity := ReserveCapacity[key%NumProfessions]
			active = append(active, offset+KeyOffset[key]+min(count, capacity-1))
		}
	}
	return active
}

// EncodeState returns the feature vector of the phase, of length StateSize.
// All three phase kinds are encoded from their shared situation.
func EncodeState(p Phase) []float32 {
	features := make([]float32, StateSize)
	for _, idx := range ActiveFeatures(p) {
		features[idx] = 1
	}
	return features
}

// EncodeBatch encodes the phases in parallel.
func EncodeBatch(phases []Phase) [][]float32 {
	batch := make([][]float32, len(phases))
	var wg errgroup.Group
	wg.SetLimit(runtime.NumCPU())
	for ii, p := range phases {
		wg.Go(func() error {
			batch[ii] = EncodeState(p)
			return nil
		})
	}
	_ = wg.Wait()
	return batch
}

// DescribeFeature returns a human-readable name of the feature index, used for debugging.
func DescribeFeature(idx int) string {
	switch {
	case idx < 0 || idx >= StateSize:
		return fmt.Sprintf("invalid feature %d", idx)
	case idx < BoardFeatures:
		cell := CoordFromNum(idx / CellValues)
		value := idx % CellValues
		switch value {
		case EmptyCell:
			return fmt.Sprintf("%s: empty", cell)
		case TamCell:
			return fmt.Sprintf("%s: Tam2", cell)
		}
		owner := "opponent"
		if value >= NumColors*NumProfessions {
			owner = "turn player"
			value -= NumColors * NumProfessions
		}
		return fmt.Sprintf("%s: %s of %s", cell, NonTamPieceFromKey(value), owner)
	}
	idx -= BoardFeatures
	owner := "turn player"
	if idx >= ReserveFeatures {
		owner = "opponent"
		idx -= ReserveFeatures
	}
	key := len(KeyOffset) - 1
	for KeyOffset[key] > idx {
		key--
	}
	return fmt.Sprintf("reserve of %s: %d x %s", owner, idx-KeyOffset[key], NonTamPieceFromKey(key))
}
