package memory

import (
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/generics"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"
	"io"
	"os"
	"path/filepath"
)

// ExperienceRow is the flattened form of an Experience in a parquet dataset. Features are stored
// sparsely as the indices of the active features (see codec.ActiveFeatures).
type ExperienceRow struct {
	Kind         string  `parquet:"kind,dict"`
	Features     []int32 `parquet:"features"`
	Action       int32   `parquet:"action"`
	NextKind     string  `parquet:"next_kind,dict,optional"`
	NextFeatures []int32 `parquet:"next_features"`
	NextLegal    []int32 `parquet:"next_legal"`
	Value        float32 `parquet:"value"`
	Terminal     bool    `parquet:"terminal"`
}

func toInt32s(values []int) []int32 {
	return generics.SliceMap(values, func(v int) int32 { return int32(v) })
}

// Row converts the experience to its parquet row.
func (e *Experience) Row() ExperienceRow {
	row := ExperienceRow{
		Kind:      e.State.Kind().String(),
		Features:  toInt32s(codec.ActiveFeatures(e.State)),
		Action:    int32(e.Action),
		NextLegal: toInt32s(e.NextLegal),
		Value:     e.Value,
		Terminal:  e.Terminal,
	}
	if e.Next != nil {
		row.NextKind = e.Next.Kind().String()
		row.NextFeatures = toInt32s(codec.ActiveFeatures(e.Next))
	}
	return row
}

// ExportParquet writes all stored experiences to a zstd-compressed parquet file, tagged with
// the run identifier. The file is written to a temporary name and renamed once complete.
func (m *ReplayMemory) ExportParquet(outPath, runID string) error {
	experiences := m.Experiences()
	rows := generics.SliceMap(experiences, (*Experience).Row)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %q", outPath)
	}
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)
	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "cerke_experience_v1"),
		parquet.KeyValueMetadata("run", runID),
	); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "writing experiences to %q", tmpPath)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return errors.Wrapf(err, "renaming %q to %q", tmpPath, outPath)
	}
	return nil
}

// ReadParquet reads back a dataset written by ExportParquet, returning its rows and run identifier.
func ReadParquet(path string) (rows []ExperienceRow, runID string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "opening %q", path)
	}
	defer func() { _ = f.Close() }()
	stat, err := f.Stat()
	if err != nil {
		return nil, "", errors.Wrapf(err, "stat of %q", path)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, "", errors.Wrapf(err, "parsing parquet file %q", path)
	}
	runID, _ = pf.Lookup("run")

	reader := parquet.NewGenericReader[ExperienceRow](pf)
	defer func() { _ = reader.Close() }()
	rows = make([]ExperienceRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, "", errors.Wrapf(err, "reading rows of %q", path)
	}
	return rows[:n], runID, nil
}
