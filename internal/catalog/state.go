package catalog

// State is the run's item table. It is not safe for concurrent use.
type State struct {
	order []string
	byID  map[string]*Item
}

// NewState returns an empty State.
func NewState() *State {
	return &State{byID: make(map[string]*Item)}
}

// Add stores item. Adding an id twice replaces the stored item but keeps its
// original position. It returns the stored pointer.
func (s *State) Add(item Item) *Item {
	stored := &item
	if _, ok := s.byID[item.ID]; !ok {
		s.order = append(s.order, item.ID)
	}
	s.byID[item.ID] = stored
	return stored
}

// Get returns the item with id.
func (s *State) Get(id string) (*Item, bool) {
	item, ok := s.byID[id]
	return item, ok
}

// Len returns the number of items.
func (s *State) Len() int {
	return len(s.order)
}

// Items returns every item in insertion order.
func (s *State) Items() []*Item {
	return s.filter(func(*Item) bool { return true })
}

// ItemsWithCommentary returns items with at least one commentary track.
func (s *State) ItemsWithCommentary() []*Item {
	return s.filter(func(i *Item) bool { return i.HasCommentary() })
}

// ItemsWithoutCommentary returns the items the keyword pass missed.
func (s *State) ItemsWithoutCommentary() []*Item {
	return s.filter(func(i *Item) bool { return !i.HasCommentary() })
}

// FindByDisplayName returns every item whose display name equals name.
// Distinct items may share a title.
func (s *State) FindByDisplayName(name string) []*Item {
	return s.filter(func(i *Item) bool { return i.DisplayName == name })
}

func (s *State) filter(keep func(*Item) bool) []*Item {
	out := make([]*Item, 0, len(s.order))
	for _, id := range s.order {
		if item := s.byID[id]; keep(item) {
			out = append(out, item)
		}
	}
	return out
}
