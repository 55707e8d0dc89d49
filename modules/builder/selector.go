package builder

import "fmt"

// Selector is the secondary list shown while editing accounts and
// variants.
type Selector struct {
	Labels []string
	index  int
}

// NewSelector panics when index is outside labels, callers derive it from
// the labels themselves.
func NewSelector(labels []string, index int) *Selector {
	if index < 0 || index >= len(labels) {
		panic(fmt.Sprintf("selector index %d out of %d labels", index, len(labels)))
	}
	return &Selector{Labels: labels, index: index}
}

func (s *Selector) Index() int {
	return s.index
}

func (s *Selector) Inc() {
	if s.index < len(s.Labels)-1 {
		s.index++
	}
}

func (s *Selector) Dec() {
	if s.index > 0 {
		s.index--
	}
}

func (s *Selector) Selected() string {
	return s.Labels[s.index]
}

func (s *Selector) clone() *Selector {
	labels := make([]string, len(s.Labels))
	copy(labels, s.Labels)
	return &Selector{Labels: labels, index: s.index}
}
