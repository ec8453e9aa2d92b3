package feedwatch

import "slices"

// SortByPublished returns items ordered newest first. Items without a
// publication time are tied for oldest: they follow every dated item and
// keep their relative order. Equal times also keep their relative order.
// The input slice is left untouched.
func SortByPublished(items []AggregatedItem) []AggregatedItem {
	sorted := make([]AggregatedItem, len(items))
	copy(sorted, items)

	slices.SortStableFunc(sorted, comparePublished)
	return sorted
}

// comparePublished orders a before b when a is newer.
func comparePublished(a, b AggregatedItem) int {
	pa, pb := a.Entry.Published, b.Entry.Published
	switch {
	case pa == nil && pb == nil:
		return 0
	case pa == nil:
		return 1
	case pb == nil:
		return -1
	}
	return pb.Compare(*pa)
}
