package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to a limit; anything past it is counted, not
// stored. A limit <= 0 means unbounded.
type Bag struct {
	items   []Diagnostic
	limit   int
	dropped int
}

func NewBag(limit int) *Bag {
	return &Bag{limit: limit}
}

// Add stores d unless the bag is full; it reports whether d was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if b.limit > 0 && len(b.items) >= b.limit {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity.Fails() })
}

func (b *Bag) Len() int { return len(b.items) }

// Dropped counts diagnostics rejected by the limit.
func (b *Bag) Dropped() int { return b.dropped }

// Items returns the backing slice. Callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

// Merge adds other's diagnostics under b's limit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		b.Add(d)
	}
	b.dropped += other.dropped
}

// Sort orders by file, start, end, severity (most severe first) then code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup drops repeated (code, span) pairs, keeping the first.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		span [3]uint32
	}
	seen := make(map[key]bool, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := key{d.Code, [3]uint32{uint32(d.Primary.File), d.Primary.Start, d.Primary.End}}
		if seen[k] {
			return true
		}
		seen[k] = true
		return false
	})
}
