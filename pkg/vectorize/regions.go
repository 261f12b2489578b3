package vectorize

// Connectivity selects which neighbours join a cell to a region.
type Connectivity int

const (
	// Four connects cells sharing an edge.
	Four Connectivity = 4
	// Eight also connects diagonal neighbours.
	Eight Connectivity = 8
)

// Run is a horizontal span [X1, X2) of equal valued cells on row Y.
type Run struct {
	X1    int
	X2    int
	Y     int
	Value uint8
}

// overlap reports whether r and other, on consecutive rows, touch.
func (r Run) overlap(other Run, conn Connectivity) bool {
	if conn == Eight {
		// diagonally adjacent runs are connected
		return r.X1 <= other.X2 && other.X1 <= r.X2
	}
	return r.X1 < other.X2 && other.X1 < r.X2
}

// Regions is a labelling of a grid into connected regions of equal value.
// Label 0 marks skipped cells; regions are numbered from 1 in scan order.
type Regions struct {
	Width  int
	Height int
	Labels []int32
	// Values and Sizes are indexed by label; index 0 is unused.
	Values []uint8
	Sizes  []int
}

func (r *Regions) Count() int {
	return len(r.Values) - 1
}

func (r *Regions) At(col, row int) int32 {
	if col < 0 || row < 0 || col >= r.Width || row >= r.Height {
		return 0
	}
	return r.Labels[col+row*r.Width]
}

// FindRuns splits every row of data into runs of equal value, leaving out
// cells for which skip returns true.
func FindRuns(data []uint8, width, height int, skip func(uint8) bool) [][]Run {
	rows := make([][]Run, height)
	i := 0
	for y := 0; y < height; y++ {
		runStart := -1
		var value uint8
		for x := 0; x < width; x++ {
			v := data[i]
			i++
			if runStart >= 0 && v == value {
				continue
			}
			if runStart >= 0 {
				rows[y] = append(rows[y], Run{X1: runStart, X2: x, Y: y, Value: value})
				runStart = -1
			}
			if skip == nil || !skip(v) {
				runStart = x
				value = v
			}
		}
		if runStart >= 0 {
			rows[y] = append(rows[y], Run{X1: runStart, X2: width, Y: y, Value: value})
		}
	}
	return rows
}

// Label finds the connected regions of equal value in data, a row-major
// grid of the given size. Runs of each row are joined to the overlapping
// runs of the previous row with a union-find, so the labelling needs a
// single pass over the runs.
func Label(data []uint8, width, height int, conn Connectivity, skip func(uint8) bool) *Regions {
	rows := FindRuns(data, width, height, skip)

	var parent []int
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// keep the smaller id as root so that labels follow scan order
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	ids := make([][]int, height)
	for y, runs := range rows {
		ids[y] = make([]int, len(runs))
		for j := range runs {
			ids[y][j] = len(parent)
			parent = append(parent, len(parent))
		}
		if y == 0 {
			continue
		}
		prev := rows[y-1]
		k := 0
		for j, run := range runs {
			// skip previous runs entirely left of this one
			for k < len(prev) && prev[k].X2 < run.X1 {
				k++
			}
			for m := k; m < len(prev) && prev[m].X1 <= run.X2; m++ {
				if prev[m].Value == run.Value && run.overlap(prev[m], conn) {
					union(ids[y][j], ids[y-1][m])
				}
			}
		}
	}

	regions := &Regions{
		Width:  width,
		Height: height,
		Labels: make([]int32, width*height),
		Values: []uint8{0},
		Sizes:  []int{0},
	}
	label := make(map[int]int32)
	for y, runs := range rows {
		for j, run := range runs {
			root := find(ids[y][j])
			l, ok := label[root]
			if !ok {
				l = int32(len(regions.Values))
				label[root] = l
				regions.Values = append(regions.Values, run.Value)
				regions.Sizes = append(regions.Sizes, 0)
			}
			regions.Sizes[l] += run.X2 - run.X1
			row := regions.Labels[y*width : (y+1)*width]
			for x := run.X1; x < run.X2; x++ {
				row[x] = l
			}
		}
	}
	return regions
}
