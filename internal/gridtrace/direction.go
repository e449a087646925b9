package gridtrace

import "math"

// candidate is a surviving move and its sampling weight.
type candidate struct {
	dir    Dir
	cell   Cell
	weight float64
}

// rowBand is the range of rows the head may occupy. When ok is false the
// viewport is too short for a band and rows are unconstrained.
type rowBand struct {
	lo, hi int
	ok     bool
}

func computeBand(scrollY, h, cell float64, margin int) rowBand {
	lo := int(math.Ceil(scrollY/cell)) + margin
	hi := int(math.Floor((scrollY+h)/cell)) - margin
	return rowBand{lo: lo, hi: hi, ok: lo <= hi}
}

// distance is how many rows j lies outside the band.
func (b rowBand) distance(j int) int {
	switch {
	case !b.ok:
		return 0
	case j < b.lo:
		return b.lo - j
	case j > b.hi:
		return j - b.hi
	}
	return 0
}

// admits keeps rows inside the band, and moves that bring an escaped head
// back toward it.
func (b rowBand) admits(from, to int) bool {
	if !b.ok {
		return true
	}
	dTo := b.distance(to)
	return dTo == 0 || dTo < b.distance(from)
}

// walkInput is everything direction selection looks at.
type walkInput struct {
	cur       Cell
	last      Dir
	cols      int
	band      rowBand
	visited   *ring[Cell]
	scrollVel float64
}

// weigh filters the four directions through the bounds and assigns the
// bias weights.
func weigh(p Params, in walkInput) []candidate {
	out := make([]candidate, 0, len(Directions))
	for _, d := range Directions {
		next := in.cur.Add(d)
		if next.I < 0 || next.I >= in.cols {
			continue
		}
		if !in.band.admits(in.cur.J, next.J) {
			continue
		}

		w := p.BaseWeight
		if !in.last.IsZero() {
			if d == in.last.Reverse() {
				w *= p.ReversePenalty
			}
			if d == in.last {
				w *= p.StraightPenalty
			}
		}
		if in.visited != nil && in.visited.Contains(next) {
			w *= p.RevisitPenalty
		}
		if math.Abs(in.scrollVel) > p.ScrollThreshold && d.DJ != 0 &&
			(d.DJ > 0) == (in.scrollVel > 0) {
			w *= p.ScrollBoost
		}
		out = append(out, candidate{dir: d, cell: next, weight: w})
	}
	return out
}

// pick draws one candidate by cumulative weight. u must be uniform in [0, 1).
func pick(cands []candidate, u float64) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	var total float64
	for _, c := range cands {
		total += c.weight
	}
	if total <= 0 {
		i := int(u * float64(len(cands)))
		if i >= len(cands) {
			i = len(cands) - 1
		}
		return cands[i], true
	}
	r := u * total
	last := 0
	for i, c := range cands {
		if c.weight <= 0 {
			continue
		}
		last = i
		r -= c.weight
		if r <= 0 {
			return c, true
		}
	}
	// Rounding left a sliver past the last weight.
	return cands[last], true
}
