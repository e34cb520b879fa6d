package state

import (
	"fmt"
	"github.com/pkg/errors"
	"strings"
)

// Row of the board, from the IASide home row A down to the ASide home row IA.
type Row int8

const (
	RowA Row = iota
	RowE
	RowI
	RowU
	RowO
	RowY
	RowAI
	RowAU
	RowIA
)

// Column of the board.
type Column int8

const (
	ColumnK Column = iota
	ColumnL
	ColumnN
	ColumnT
	ColumnZ
	ColumnX
	ColumnC
	ColumnM
	ColumnP
)

const (
	// BoardSize is the number of rows (and columns) of the board.
	BoardSize = 9

	// NumCells on the board.
	NumCells = BoardSize * BoardSize
)

var (
	rowNames    = [BoardSize]string{"A", "E", "I", "U", "O", "Y", "AI", "AU", "IA"}
	columnNames = [BoardSize]string{"K", "L", "N", "T", "Z", "X", "C", "M", "P"}
)

func (r Row) String() string {
	if r < 0 || r >= BoardSize {
		return fmt.Sprintf("Row(%d)", int(r))
	}
	return rowNames[r]
}

func (c Column) String() string {
	if c < 0 || c >= BoardSize {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

// Coord is an absolute board coordinate.
type Coord struct {
	Row    Row
	Column Column
}

// CoordFromNum is the inverse of Coord.Num.
func CoordFromNum(num int) Coord {
	return Coord{Row: Row(num / BoardSize), Column: Column(num % BoardSize)}
}

// Num returns the cell number in [0, NumCells): row*9 + column.
func (c Coord) Num() int {
	return int(c.Row)*BoardSize + int(c.Column)
}

// Valid returns whether the coordinate is within the board.
func (c Coord) Valid() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Column >= 0 && c.Column < BoardSize
}

// Add returns c shifted by the direction d, possibly outside the board.
func (c Coord) Add(d Direction) Coord {
	return Coord{Row: c.Row + Row(d.DRow), Column: c.Column + Column(d.DColumn)}
}

// String uses the Cerke convention: column letters followed by row letters, e.g. "ZO".
func (c Coord) String() string {
	return c.Column.String() + c.Row.String()
}

// ParseCoord parses the format produced by Coord.String.
func ParseCoord(s string) (Coord, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Coord{}, errors.Errorf("invalid coordinate %q", s)
	}
	col := strings.Index("KLNTZXCMP", s[:1])
	if col < 0 {
		return Coord{}, errors.Errorf("invalid column in coordinate %q", s)
	}
	for row, name := range rowNames {
		if name == s[1:] {
			return Coord{Row: Row(row), Column: Column(col)}, nil
		}
	}
	return Coord{}, errors.Errorf("invalid row in coordinate %q", s)
}

// Direction is a unit (or, for jumps, scaled) displacement on the board.
type Direction struct {
	DRow, DColumn int8
}

// Scale multiplies the direction by k.
func (d Direction) Scale(k int8) Direction {
	return Direction{d.DRow * k, d.DColumn * k}
}

var (
	// Orthogonal directions, in fixed order: up, down, left, right.
	Orthogonal = []Direction{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

	// Diagonal directions, in fixed order.
	Diagonal = []Direction{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

	// AllDirections is Orthogonal followed by Diagonal.
	AllDirections = append(append([]Direction{}, Orthogonal...), Diagonal...)
)

// Neighbors returns the valid cells adjacent to c, in AllDirections order.
func (c Coord) Neighbors() []Coord {
	neighbors := make([]Coord, 0, len(AllDirections))
	for _, d := range AllDirections {
		if n := c.Add(d); n.Valid() {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// unitTowards returns the unit direction from c to target and the distance, if
// they are aligned orthogonally or diagonally.
func (c Coord) unitTowards(target Coord) (d Direction, distance int, ok bool) {
	dr := int(target.Row - c.Row)
	dc := int(target.Column - c.Column)
	if dr == 0 && dc == 0 {
		return Direction{}, 0, false
	}
	if dr != 0 && dc != 0 && abs(dr) != abs(dc) {
		return Direction{}, 0, false
	}
	distance = max(abs(dr), abs(dc))
	return Direction{int8(sign(dr)), int8(sign(dc))}, distance, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
