package models

// Layout is the working copy of one board: its lists in position order and
// the ordered cards of every list, keyed by list ID.
type Layout struct {
	Lists []List
	Cards map[int64][]Card
}

// NewLayout returns an empty layout.
func NewLayout() Layout {
	return Layout{Cards: map[int64][]Card{}}
}

// Clone returns a deep copy of l.
func (l Layout) Clone() Layout {
	out := Layout{
		Lists: append([]List(nil), l.Lists...),
		Cards: make(map[int64][]Card, len(l.Cards)),
	}
	for id, cards := range l.Cards {
		out.Cards[id] = append([]Card(nil), cards...)
	}
	return out
}

// HasList reports whether listID belongs to the layout.
func (l Layout) HasList(listID int64) bool {
	for _, list := range l.Lists {
		if list.ID == listID {
			return true
		}
	}
	return false
}

// FindCard returns the list ID and index of cardID, or ok=false.
func (l Layout) FindCard(cardID int64) (listID int64, index int, ok bool) {
	for _, list := range l.Lists {
		for i, c := range l.Cards[list.ID] {
			if c.ID == cardID {
				return list.ID, i, true
			}
		}
	}
	return 0, 0, false
}

// CardCount returns the total number of cards across all lists.
func (l Layout) CardCount() int {
	n := 0
	for _, cards := range l.Cards {
		n += len(cards)
	}
	return n
}
