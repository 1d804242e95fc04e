package app

import "retroboard/api/internal/store"

// placement is the resolved landing spot for a dragged card.
type placement struct {
	ColumnID  string
	SortOrder int
}

// placeAtColumnEnd appends the moved card after the target column's existing
// cards. siblings excludes the moved card itself.
func placeAtColumnEnd(columnID string, siblings []store.Card) placement {
	return placement{ColumnID: columnID, SortOrder: len(siblings)}
}

// placeBeforeCard inserts the moved card at the drop target's index within the
// target column, siblings sorted by sortOrder ascending with the moved card
// excluded. A target that vanished concurrently degrades to an append.
func placeBeforeCard(columnID string, siblings []store.Card, overCardID string) placement {
	for i, sibling := range siblings {
		if sibling.ID == overCardID {
			return placement{ColumnID: columnID, SortOrder: i}
		}
	}
	return placement{ColumnID: columnID, SortOrder: len(siblings)}
}

// isNoopMove reports whether the resolved placement leaves the card exactly
// where it is. Sibling sortOrder values are never renumbered, so equality on
// (column, sortOrder) is the full check.
func isNoopMove(card store.Card, target placement) bool {
	return card.ColumnID != nil && *card.ColumnID == target.ColumnID && card.SortOrder == target.SortOrder
}
