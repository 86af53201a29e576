package types

// Page is the result of a single paginated fetch: an ordered set of entities
// keyed by ID, in server response order. A Page is built once and never
// mutated afterwards.
type Page[T Entity] struct {
	items    []T
	index    map[string]int
	meta     Meta
	includes *Includes
}

// NewPage builds a Page from decoded entities. Duplicate IDs keep their first
// occurrence; entries without an ID (including nil pointers) are dropped.
func NewPage[T Entity](items []T, meta *Meta, includes *Includes) *Page[T] {
	p := &Page[T]{
		items:    make([]T, 0, len(items)),
		index:    make(map[string]int, len(items)),
		includes: includes,
	}
	if meta != nil {
		p.meta = *meta
	}

	for _, item := range items {
		id := item.GetID()
		if id == "" {
			continue
		}
		if _, seen := p.index[id]; seen {
			continue
		}
		p.index[id] = len(p.items)
		p.items = append(p.items, item)
	}

	return p
}

// Len returns the number of entities in the page.
func (p *Page[T]) Len() int { return len(p.items) }

// Items returns a copy of the entities in server order.
func (p *Page[T]) Items() []T {
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}

// IDs returns the entity IDs in server order.
func (p *Page[T]) IDs() []string {
	out := make([]string, len(p.items))
	for i, item := range p.items {
		out[i] = item.GetID()
	}
	return out
}

// Get looks up an entity by ID.
func (p *Page[T]) Get(id string) (T, bool) {
	i, ok := p.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return p.items[i], true
}

// Meta returns the response metadata the page was built from.
func (p *Page[T]) Meta() Meta { return p.meta }

// Includes returns the expanded objects returned alongside the page, if any.
func (p *Page[T]) Includes() *Includes { return p.includes }
