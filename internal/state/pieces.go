package state

import "fmt"

// Side identifies a player. Sides are absolute: ASide starts on rows AI/AU/IA and IASide on rows A/E/I.
type Side uint8

const (
	ASide Side = iota
	IASide

	// NumSides is always 2.
	NumSides = 2
)

// Other returns the opponent side.
func (s Side) Other() Side {
	return 1 - s
}

func (s Side) String() string {
	switch s {
	case ASide:
		return "ASide"
	case IASide:
		return "IASide"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// Color of a piece. It is not related to ownership.
type Color uint8

const (
	Kok1 Color = iota // black
	Huok2             // red

	NumColors = 2
)

func (c Color) String() string {
	if c == Huok2 {
		return "Huok2"
	}
	return "Kok1"
}

// Profession of a non-Tam2 piece. The order is the one used by the feature and action encodings.
type Profession uint8

const (
	Nuak1 Profession = iota
	Kauk2
	Gua2
	Kaun1
	Dau2
	Maun1
	Kua2
	Tuk2
	Uai1
	Io

	NumProfessions = 10
)

var professionNames = [NumProfessions]string{
	"Nuak1", "Kauk2", "Gua2", "Kaun1", "Dau2", "Maun1", "Kua2", "Tuk2", "Uai1", "Io"}

// professionLetters is used by the text rendering of the board.
var professionLetters = [NumProfessions]string{"V", "P", "R", "B", "T", "H", "C", "S", "G", "K"}

func (p Profession) String() string {
	if int(p) < NumProfessions {
		return professionNames[p]
	}
	return fmt.Sprintf("Profession(%d)", uint8(p))
}

// Letter returns a one letter abbreviation of the profession.
func (p Profession) Letter() string {
	return professionLetters[p]
}

// NonTamPiece is a piece without ownership, as kept in a player's reserve (hop1zuo1).
type NonTamPiece struct {
	Color Color
	Prof  Profession
}

// Key returns the reserve histogram key of the piece: color*10 + profession, in [0, 20).
func (p NonTamPiece) Key() int {
	return int(p.Color)*NumProfessions + int(p.Prof)
}

// NonTamPieceFromKey is the inverse of NonTamPiece.Key.
func NonTamPieceFromKey(key int) NonTamPiece {
	return NonTamPiece{Color: Color(key / NumProfessions), Prof: Profession(key % NumProfessions)}
}

func (p NonTamPiece) String() string {
	return fmt.Sprintf("%s %s", p.Color, p.Prof)
}

// PieceKind distinguishes empty cells, the shared Tam2 and owned pieces.
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	Tam2
	NonTam2
)

// Piece occupying a cell. The zero value is an empty cell.
type Piece struct {
	Kind  PieceKind
	Color Color
	Prof  Profession
	Side  Side
}

// Empty returns whether the cell holds no piece.
func (p Piece) Empty() bool {
	return p.Kind == NoPiece
}

// IsTam returns whether the piece is the Tam2.
func (p Piece) IsTam() bool {
	return p.Kind == Tam2
}

// OwnedBy returns whether p is a non-Tam2 piece of the given side.
func (p Piece) OwnedBy(side Side) bool {
	return p.Kind == NonTam2 && p.Side == side
}

// NonTam returns the ownership-free part of the piece.
func (p Piece) NonTam() NonTamPiece {
	return NonTamPiece{Color: p.Color, Prof: p.Prof}
}

func (p Piece) String() string {
	switch p.Kind {
	case NoPiece:
		return "-"
	case Tam2:
		return "Tam2"
	}
	return fmt.Sprintf("%s %s (%s)", p.Color, p.Prof, p.Side)
}

// NewPiece creates a non-Tam2 piece.
func NewPiece(color Color, prof Profession, side Side) Piece {
	return Piece{Kind: NonTam2, Color: color, Prof: prof, Side: side}
}
