package lang

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/muss-lang/muss/internal/runtime"
)

// ---- empty -------------------------------------------------------------

// emptySorter passes upstream through unchanged, one item per call.
type emptySorter struct{}

func (emptySorter) String() string { return "" }
func (emptySorter) Reset()         {}
func (emptySorter) Clone() Sorter  { return emptySorter{} }

func (emptySorter) Sort(upstream runtime.Op, _ *runtime.Context) (runtime.Item, bool, error) {
	res, ok := upstream.Next()
	if !ok {
		return runtime.Item{}, false, nil
	}
	if res.IsErr() {
		return runtime.Item{}, false, res.Err
	}
	return res.Item, true, nil
}

// ---- shuffle -------------------------------------------------------------

// shuffleSorter is a reservoir shuffle: each call draws a 16-bit slot r,
// buffers upstream items until the buffer is larger than r, and swap-removes
// slot r; once upstream is exhausted it takes slot r modulo the buffer size.
type shuffleSorter struct {
	buf     []runtime.Item
	drained bool
	done    bool
}

func (s *shuffleSorter) String() string { return "shuffle" }
func (s *shuffleSorter) Reset()         { s.buf = nil; s.drained = false; s.done = false }
func (s *shuffleSorter) Clone() Sorter {
	return &shuffleSorter{buf: append([]runtime.Item{}, s.buf...), drained: s.drained, done: s.done}
}

func (s *shuffleSorter) Sort(upstream runtime.Op, _ *runtime.Context) (runtime.Item, bool, error) {
	if s.done {
		return runtime.Item{}, false, nil
	}
	r := rand.Intn(1 << 16)
	for !s.drained && len(s.buf) <= r {
		res, ok := upstream.Next()
		if !ok {
			s.drained = true
			break
		}
		if res.IsErr() {
			return runtime.Item{}, false, res.Err
		}
		s.buf = append(s.buf, res.Item)
	}
	if len(s.buf) == 0 {
		s.done = true
		return runtime.Item{}, false, nil
	}
	idx := r % len(s.buf)
	item := s.buf[idx]
	s.buf[idx] = s.buf[len(s.buf)-1]
	s.buf = s.buf[:len(s.buf)-1]
	if s.drained && len(s.buf) == 0 {
		s.done = true
	}
	return item, true, nil
}

// ---- field ---------------------------------------------------------------

// fieldSorter materializes upstream once, stable-sorts by a single field
// (items missing the field sink to the end, in encounter order among
// themselves), and drains one item per call thereafter.
type fieldSorter struct {
	field    string
	items    []runtime.Item
	idx      int
	prepared bool
}

func (s *fieldSorter) String() string { return "." + s.field }
func (s *fieldSorter) Reset()         { s.items = nil; s.idx = 0; s.prepared = false }
func (s *fieldSorter) Clone() Sorter {
	return &fieldSorter{field: s.field, items: append([]runtime.Item{}, s.items...), idx: s.idx, prepared: s.prepared}
}

func (s *fieldSorter) Sort(upstream runtime.Op, _ *runtime.Context) (runtime.Item, bool, error) {
	if !s.prepared {
		s.prepared = true
		for {
			res, ok := upstream.Next()
			if !ok {
				break
			}
			if res.IsErr() {
				return runtime.Item{}, false, res.Err
			}
			s.items = append(s.items, res.Item)
		}
		sort.SliceStable(s.items, func(i, j int) bool {
			a, aok := s.items[i].Field(s.field)
			b, bok := s.items[j].Field(s.field)
			if !aok && !bok {
				return false
			}
			if !aok {
				return false
			}
			if !bok {
				return true
			}
			cmp, err := a.Compare(b)
			if err != nil {
				return false
			}
			return cmp < 0
		})
	}
	if s.idx >= len(s.items) {
		return runtime.Item{}, false, nil
	}
	item := s.items[s.idx]
	s.idx++
	return item, true, nil
}

// ---- bliss_first -----------------------------------------------------

// blissFirstSorter anchors on the first upstream item and orders the rest
// by musical distance from it, via the Context's MusicAnalyzer.
type blissFirstSorter struct {
	items    []runtime.Item
	idx      int
	prepared bool
}

func (s *blissFirstSorter) String() string { return "bliss_first" }
func (s *blissFirstSorter) Reset()         { s.items = nil; s.idx = 0; s.prepared = false }
func (s *blissFirstSorter) Clone() Sorter {
	return &blissFirstSorter{items: append([]runtime.Item{}, s.items...), idx: s.idx, prepared: s.prepared}
}

func (s *blissFirstSorter) Sort(upstream runtime.Op, ctx *runtime.Context) (runtime.Item, bool, error) {
	if !s.prepared {
		s.prepared = true
		if ctx.Analysis == nil {
			return runtime.Item{}, false, fmt.Errorf("bliss_first requires a configured music analyzer")
		}
		var all []runtime.Item
		for {
			res, ok := upstream.Next()
			if !ok {
				break
			}
			if res.IsErr() {
				return runtime.Item{}, false, res.Err
			}
			all = append(all, res.Item)
		}
		if len(all) == 0 {
			return runtime.Item{}, false, nil
		}
		anchor := all[0]
		rest := all[1:]
		distances := make([]float64, len(rest))
		for i, item := range rest {
			if err := ctx.Analysis.PrepareDistance(anchor, item); err != nil {
				return runtime.Item{}, false, err
			}
			d, err := ctx.Analysis.GetDistance(anchor, item)
			if err != nil {
				return runtime.Item{}, false, err
			}
			distances[i] = d
		}
		order := make([]int, len(rest))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return distances[order[i]] < distances[order[j]] })
		s.items = append(s.items, anchor)
		for _, i := range order {
			s.items = append(s.items, rest[i])
		}
	}
	if s.idx >= len(s.items) {
		return runtime.Item{}, false, nil
	}
	item := s.items[s.idx]
	s.idx++
	return item, true, nil
}

// ---- bliss_next ------------------------------------------------------

// blissNextSorter greedily chains: each step picks the remaining item
// closest (by MusicAnalyzer distance) to the last one yielded.
type blissNextSorter struct {
	remaining []runtime.Item
	current   *runtime.Item
	prepared  bool
}

func (s *blissNextSorter) String() string { return "bliss_next" }
func (s *blissNextSorter) Reset()         { s.remaining = nil; s.current = nil; s.prepared = false }
func (s *blissNextSorter) Clone() Sorter {
	clone := &blissNextSorter{remaining: append([]runtime.Item{}, s.remaining...), prepared: s.prepared}
	if s.current != nil {
		cur := *s.current
		clone.current = &cur
	}
	return clone
}

func (s *blissNextSorter) Sort(upstream runtime.Op, ctx *runtime.Context) (runtime.Item, bool, error) {
	if !s.prepared {
		s.prepared = true
		if ctx.Analysis == nil {
			return runtime.Item{}, false, fmt.Errorf("bliss_next requires a configured music analyzer")
		}
		for {
			res, ok := upstream.Next()
			if !ok {
				break
			}
			if res.IsErr() {
				return runtime.Item{}, false, res.Err
			}
			s.remaining = append(s.remaining, res.Item)
		}
	}
	if s.current == nil {
		if len(s.remaining) == 0 {
			return runtime.Item{}, false, nil
		}
		first := s.remaining[0]
		s.remaining = s.remaining[1:]
		s.current = &first
		return first, true, nil
	}
	if len(s.remaining) == 0 {
		return runtime.Item{}, false, nil
	}
	bestIdx := 0
	bestDist := -1.0
	for i, cand := range s.remaining {
		if err := ctx.Analysis.PrepareDistance(*s.current, cand); err != nil {
			return runtime.Item{}, false, err
		}
		d, err := ctx.Analysis.GetDistance(*s.current, cand)
		if err != nil {
			return runtime.Item{}, false, err
		}
		if bestDist < 0 || d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	next := s.remaining[bestIdx]
	s.remaining = append(s.remaining[:bestIdx], s.remaining[bestIdx+1:]...)
	s.current = &next
	return next, true, nil
}

// ---- radio -------------------------------------------------------------

// radioSorter passes upstream through unchanged, then once it's exhausted
// appends a trailing batch fetched from the configured MPD querier (if
// any), letting a playlist extend itself with radio-style suggestions.
type radioSorter struct {
	upstreamDone bool
	extra        []runtime.Item
	extraIdx     int
	fetched      bool
}

func (s *radioSorter) String() string { return "radio" }
func (s *radioSorter) Reset() {
	s.upstreamDone = false
	s.extra = nil
	s.extraIdx = 0
	s.fetched = false
}
func (s *radioSorter) Clone() Sorter {
	return &radioSorter{
		upstreamDone: s.upstreamDone,
		extra:        append([]runtime.Item{}, s.extra...),
		extraIdx:     s.extraIdx,
		fetched:      s.fetched,
	}
}

func (s *radioSorter) Sort(upstream runtime.Op, ctx *runtime.Context) (runtime.Item, bool, error) {
	if !s.upstreamDone {
		res, ok := upstream.Next()
		if ok {
			if res.IsErr() {
				return runtime.Item{}, false, res.Err
			}
			return res.Item, true, nil
		}
		s.upstreamDone = true
	}
	if !s.fetched {
		s.fetched = true
		if ctx.Mpd != nil {
			items, err := ctx.Mpd.Search(map[string]string{})
			if err != nil {
				return runtime.Item{}, false, err
			}
			s.extra = items
		}
	}
	if s.extraIdx >= len(s.extra) {
		return runtime.Item{}, false, nil
	}
	item := s.extra[s.extraIdx]
	s.extraIdx++
	return item, true, nil
}

// ---- dispatcher ----------------------------------------------------------

type sorterCase struct {
	is    func(*TokenQueue) bool
	build func(*TokenQueue) (Sorter, error)
}

// StandardSorterFactory is the ordered dispatcher registered for the `~( )`
// block in the standard vocabulary.
type StandardSorterFactory struct{}

func isNamedSorter(q *TokenQueue, name string) bool {
	return q.Len() == 1 && q.At(0).IsName() && q.At(0).Text == name
}

func standardSorterCases() []sorterCase {
	return []sorterCase{
		{is: func(q *TokenQueue) bool { return q.Empty() || isNamedSorter(q, "empty") },
			build: func(*TokenQueue) (Sorter, error) { return emptySorter{}, nil }},
		{is: func(q *TokenQueue) bool { return isNamedSorter(q, "shuffle") },
			build: func(*TokenQueue) (Sorter, error) { return &shuffleSorter{}, nil }},
		{is: func(q *TokenQueue) bool { return isNamedSorter(q, "bliss_first") },
			build: func(*TokenQueue) (Sorter, error) { return &blissFirstSorter{}, nil }},
		{is: func(q *TokenQueue) bool { return isNamedSorter(q, "bliss_next") },
			build: func(*TokenQueue) (Sorter, error) { return &blissNextSorter{}, nil }},
		{is: func(q *TokenQueue) bool { return isNamedSorter(q, "radio") },
			build: func(*TokenQueue) (Sorter, error) { return &radioSorter{}, nil }},
		{is: func(q *TokenQueue) bool { return q.Len() == 2 && q.At(0).IsDot() && q.At(1).IsName() },
			build: func(q *TokenQueue) (Sorter, error) {
				q.PopFront()
				field, err := assertName(q)
				if err != nil {
					return nil, err
				}
				return &fieldSorter{field: field}, nil
			}},
	}
}

func (StandardSorterFactory) IsSorter(tokens *TokenQueue) bool {
	for _, c := range standardSorterCases() {
		if c.is(tokens) {
			return true
		}
	}
	return false
}

func (StandardSorterFactory) BuildSorter(tokens *TokenQueue) (Sorter, error) {
	for _, c := range standardSorterCases() {
		if c.is(tokens) {
			return c.build(tokens)
		}
	}
	tok, _ := tokens.Front()
	return nil, syntaxErr("a sorter", &tok)
}
