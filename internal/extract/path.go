package extract

// Path tracks the ancestor chain of the element being walked. Alongside the
// names it maintains the chain joined with '/', so route lookups can index a
// map without building a key per event.
type Path struct {
	names []string
	key   []byte
	marks []int
}

// Enter pushes an element name.
func (p *Path) Enter(name string) {
	p.marks = append(p.marks, len(p.key))
	if len(p.names) > 0 {
		p.key = append(p.key, '/')
	}
	p.key = append(p.key, name...)
	p.names = append(p.names, name)
}

// Exit pops the innermost element. It reports false when the path is
// already empty.
func (p *Path) Exit() bool {
	n := len(p.names)
	if n == 0 {
		return false
	}
	p.key = p.key[:p.marks[n-1]]
	p.marks = p.marks[:n-1]
	p.names = p.names[:n-1]
	return true
}

// Current returns the ancestor chain, outermost first. The slice is only
// valid until the next Enter or Exit.
func (p *Path) Current() []string {
	return p.names
}

// Depth is the number of open elements.
func (p *Path) Depth() int {
	return len(p.names)
}

// String returns the joined chain, e.g. "ABR/ABN".
func (p *Path) String() string {
	return string(p.key)
}

// Reset empties the path, keeping allocated capacity.
func (p *Path) Reset() {
	p.names = p.names[:0]
	p.key = p.key[:0]
	p.marks = p.marks[:0]
}
