package swath

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Entry is one row of the attribute table. Bounds are
// [minx, miny, maxx, maxy].
type Entry struct {
	Axis    uint32     `json:"axis"`
	Swath   uint32     `json:"swath"`
	Measure float64    `json:"measure"`
	Bounds  [4]float64 `json:"bounds"`
}

// Table is the persisted result of a discretization run.
type Table struct {
	MDelta    float64   `json:"mdelta"`
	Mask      string    `json:"mask"`
	Reference string    `json:"reference"`
	RunID     uuid.UUID `json:"run_id"`
	Created   time.Time `json:"created"`
	Entries   []Entry   `json:"entries"`
}

// NewTable snapshots attrs with a fresh run id.
func NewTable(attrs Attributes, mdelta float64, mask, reference string) *Table {
	t := &Table{
		MDelta:    mdelta,
		Mask:      mask,
		Reference: reference,
		RunID:     uuid.New(),
		Created:   time.Now().UTC().Truncate(time.Second),
		Entries:   make([]Entry, 0, len(attrs)),
	}
	for _, k := range attrs.Keys() {
		v := attrs[k]
		t.Entries = append(t.Entries, Entry{
			Axis:    k.Axis,
			Swath:   k.Swath,
			Measure: v.Measure,
			Bounds:  [4]float64{v.Bounds.Min[0], v.Bounds.Min[1], v.Bounds.Max[0], v.Bounds.Max[1]},
		})
	}
	return t
}

// Attributes rebuilds the attribute map of the table.
func (t *Table) Attributes() Attributes {
	attrs := make(Attributes, len(t.Entries))
	for _, e := range t.Entries {
		attrs[Key{Axis: e.Axis, Swath: e.Swath}] = Attribute{
			Measure: e.Measure,
			Bounds:  orb.Bound{Min: orb.Point{e.Bounds[0], e.Bounds[1]}, Max: orb.Point{e.Bounds[2], e.Bounds[3]}},
		}
	}
	return attrs
}

// Axis returns the attributes of one axis, or all of them for axis 0.
func (t *Table) Axis(axis uint32) Attributes {
	attrs := t.Attributes()
	if axis == 0 {
		return attrs
	}
	for k := range attrs {
		if k.Axis != axis {
			delete(attrs, k)
		}
	}
	return attrs
}

func WriteTable(w io.Writer, t *Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func ReadTable(r io.Reader) (*Table, error) {
	var t Table
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("swath table: %w", err)
	}
	return &t, nil
}

// SaveTable writes t to path, replacing any previous table.
func SaveTable(path string, t *Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".table-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOConflict, err)
	}
	defer os.Remove(tmp.Name())
	if err := WriteTable(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrIOConflict, err)
	}
	return nil
}

func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}
