package edit

import (
	"sort"

	"valleyswaths/pkg/vectorize"
)

// DefaultSieveThreshold is the smallest region, in cells, kept by Sieve.
const DefaultSieveThreshold = 40

// Sieve removes the regions of mask smaller than threshold cells. Regions
// are 4-connected, whatever their value; a small region takes the value of
// its largest neighbour, smallest regions first. A region with no neighbour
// is kept.
func Sieve(mask []bool, width, height, threshold int) []bool {
	data := make([]uint8, len(mask))
	for i, m := range mask {
		if m {
			data[i] = 1
		}
	}
	regions := vectorize.Label(data, width, height, vectorize.Four, nil)
	n := regions.Count()

	// neighbours of every region, by label
	adjacent := make([]map[int32]bool, n+1)
	for l := range adjacent {
		adjacent[l] = make(map[int32]bool)
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			l := regions.At(col, row)
			if r := regions.At(col+1, row); col+1 < width && r != l {
				adjacent[l][r] = true
				adjacent[r][l] = true
			}
			if b := regions.At(col, row+1); row+1 < height && b != l {
				adjacent[l][b] = true
				adjacent[b][l] = true
			}
		}
	}

	parent := make([]int32, n+1)
	size := make([]int, n+1)
	value := make([]uint8, n+1)
	for l := range parent {
		parent[l] = int32(l)
		size[l] = regions.Sizes[l]
		value[l] = regions.Values[l]
	}
	find := func(l int32) int32 {
		for parent[l] != l {
			parent[l] = parent[parent[l]]
			l = parent[l]
		}
		return l
	}

	order := make([]int32, 0, n)
	for l := 1; l <= n; l++ {
		if regions.Sizes[l] < threshold {
			order = append(order, int32(l))
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return regions.Sizes[order[i]] < regions.Sizes[order[j]]
	})

	for _, l := range order {
		root := find(l)
		if size[root] >= threshold {
			continue
		}
		var best int32
		for m := range adjacent[root] {
			r := find(m)
			if r == root {
				continue
			}
			if best == 0 || size[r] > size[best] || (size[r] == size[best] && r < best) {
				best = r
			}
		}
		if best == 0 {
			continue
		}
		parent[root] = best
		size[best] += size[root]
		for m := range adjacent[root] {
			adjacent[best][m] = true
		}
	}

	out := make([]bool, len(mask))
	for i, l := range regions.Labels {
		out[i] = value[find(l)] == 1
	}
	return out
}
