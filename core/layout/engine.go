// Package layout places the class blocks of a weekly schedule grid.
//
// Blocks that overlap on the same day are split into side-by-side columns:
// overlapping blocks never share a column, and every block of a cluster
// (blocks overlapping directly or transitively) gets the same column count,
// equal to the cluster's maximum concurrency. Intervals are half-open, so a
// block ending at 09:00 and one starting at 09:00 do not overlap.
package layout

import "sort"

// Block is an event occupying a time range on a single day-track.
// Meta is display data the layout never looks at.
type Block struct {
	ID        string            `json:"id" yaml:"id"`
	DayOfWeek int               `json:"day_of_week" yaml:"day_of_week"`
	Start     Clock             `json:"start_time" yaml:"start_time"`
	End       Clock             `json:"end_time" yaml:"end_time"`
	Meta      map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Placed is a Block annotated with its layout.
type Placed struct {
	Block
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
	Column      int `json:"column"`
	ColumnCount int `json:"column_count"`
}

// occupiedUntil is the end used for interval math: inverted blocks are treated as zero-length.
func (p *Placed) occupiedUntil() int {
	if p.EndMinute < p.StartMinute {
		return p.StartMinute
	}
	return p.EndMinute
}

// LayoutDay places the blocks of one day-track. placed[i] annotates blocks[i].
// It never fails: zero-length and inverted blocks are placed as slivers.
func LayoutDay(blocks []Block) []Placed {
	placed := make([]Placed, len(blocks))
	order := make([]int, len(blocks))
	for i, b := range blocks {
		placed[i] = Placed{
			Block:       b,
			StartMinute: b.Start.Minutes(),
			EndMinute:   b.End.Minutes(),
		}
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := &placed[order[i]], &placed[order[j]]
		if a.StartMinute != b.StartMinute {
			return a.StartMinute < b.StartMinute
		}
		return a.EndMinute < b.EndMinute
	})

	// a block starts a new cluster once every block of the current one has ended
	cluster := make([]int, 0, len(order))
	var clusterEnd int
	for _, idx := range order {
		p := &placed[idx]
		if len(cluster) > 0 && p.StartMinute >= clusterEnd {
			assignColumns(placed, cluster)
			cluster = cluster[:0]
		}
		if len(cluster) == 0 || p.occupiedUntil() > clusterEnd {
			clusterEnd = p.occupiedUntil()
		}
		cluster = append(cluster, idx)
	}
	assignColumns(placed, cluster)

	return placed
}

type activeColumn struct {
	column int
	end    int
}

// assignColumns colors one cluster, given in start order, with the lowest free column.
func assignColumns(placed []Placed, cluster []int) {
	if len(cluster) == 0 {
		return
	}

	var (
		active     []activeColumn
		free       []int // ascending
		nextColumn int
		maxColumns int
	)
	for _, idx := range cluster {
		p := &placed[idx]

		kept := active[:0]
		for _, ac := range active {
			if ac.end <= p.StartMinute {
				free = insertSorted(free, ac.column)
			} else {
				kept = append(kept, ac)
			}
		}
		active = kept

		if len(free) > 0 {
			p.Column, free = free[0], free[1:]
		} else {
			p.Column = nextColumn
			nextColumn++
			if nextColumn > maxColumns {
				maxColumns = nextColumn
			}
		}
		active = append(active, activeColumn{column: p.Column, end: p.occupiedUntil()})
	}

	count := maxColumns
	if count < 1 {
		count = 1
	}
	for _, idx := range cluster {
		placed[idx].ColumnCount = count
	}
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
