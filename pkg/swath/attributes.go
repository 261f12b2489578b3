package swath

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// Key identifies one swath of one axis.
type Key struct {
	Axis  uint32
	Swath uint32
}

func (k Key) String() string {
	return fmt.Sprintf("axis %d swath %d", k.Axis, k.Swath)
}

// Attribute is what is known about a swath across all tiles: its
// representative measure and the world bounds of its cells.
type Attribute struct {
	Measure float64
	Bounds  orb.Bound
}

// Attributes maps swaths to their attributes.
type Attributes map[Key]Attribute

// Add records one more extent for k. The measure of an existing key is
// kept; a different measure is an ErrInconsistentKey.
func (a Attributes) Add(k Key, v Attribute) error {
	cur, ok := a[k]
	if !ok {
		a[k] = v
		return nil
	}
	if cur.Measure != v.Measure {
		return fmt.Errorf("%w: %s: measure %g, already recorded %g", ErrInconsistentKey, k, v.Measure, cur.Measure)
	}
	cur.Bounds = cur.Bounds.Union(v.Bounds)
	a[k] = cur
	return nil
}

// Merge folds other into a. Merging is commutative and associative, so
// tile results may be merged in any order.
func (a Attributes) Merge(other Attributes) error {
	for _, k := range other.Keys() {
		if err := a.Add(k, other[k]); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys sorted by axis then swath.
func (a Attributes) Keys() []Key {
	keys := make([]Key, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Axis != keys[j].Axis {
			return keys[i].Axis < keys[j].Axis
		}
		return keys[i].Swath < keys[j].Swath
	})
	return keys
}

// Axes returns the distinct axis ids, sorted.
func (a Attributes) Axes() []uint32 {
	var axes []uint32
	for _, k := range a.Keys() {
		if len(axes) == 0 || axes[len(axes)-1] != k.Axis {
			axes = append(axes, k.Axis)
		}
	}
	return axes
}

// Aggregate folds a sequence of per tile attributes.
func Aggregate(parts ...Attributes) (Attributes, error) {
	out := make(Attributes)
	for _, p := range parts {
		if err := out.Merge(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
