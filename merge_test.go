package feedwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/feedwatch/subscription"
)

func itemAt(title string, published *time.Time) AggregatedItem {
	return AggregatedItem{
		Entry:        entryAt(title, published),
		Subscription: subscription.Subscription{Name: "S", URL: "http://s"},
	}
}

func titles(items []AggregatedItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Entry.Title
	}
	return out
}

// TestSortByPublished_NewestFirst verifies dated items are ordered newest
// first
func TestSortByPublished_NewestFirst(t *testing.T) {
	items := []AggregatedItem{
		itemAt("old", timeAt(2023, 1, 1)),
		itemAt("new", timeAt(2024, 6, 1)),
		itemAt("mid", timeAt(2024, 1, 1)),
	}

	sorted := SortByPublished(items)

	assert.Equal(t, []string{"new", "mid", "old"}, titles(sorted))
}

// TestSortByPublished_UndatedLast verifies undated items follow every dated
// item and keep their relative order
func TestSortByPublished_UndatedLast(t *testing.T) {
	items := []AggregatedItem{
		itemAt("u1", nil),
		itemAt("dated", timeAt(2020, 1, 1)),
		itemAt("u2", nil),
		itemAt("u3", nil),
	}

	sorted := SortByPublished(items)

	assert.Equal(t, []string{"dated", "u1", "u2", "u3"}, titles(sorted))
}

// TestSortByPublished_StableForTies verifies equal times keep input order
func TestSortByPublished_StableForTies(t *testing.T) {
	same := timeAt(2024, 1, 1)
	items := []AggregatedItem{
		itemAt("first", same),
		itemAt("newer", timeAt(2024, 2, 1)),
		itemAt("second", same),
		itemAt("third", same),
	}

	sorted := SortByPublished(items)

	assert.Equal(t, []string{"newer", "first", "second", "third"}, titles(sorted))
}

// TestSortByPublished_ComparesInstants verifies times in different zones are
// compared as instants
func TestSortByPublished_ComparesInstants(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	early := time.Date(2024, 1, 1, 8, 0, 0, 0, tokyo) // 2023-12-31T23:00Z
	late := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sorted := SortByPublished([]AggregatedItem{
		itemAt("early", &early),
		itemAt("late", &late),
	})

	assert.Equal(t, []string{"late", "early"}, titles(sorted))
}

// TestSortByPublished_DoesNotMutateInput verifies the input slice keeps its
// order and the result is a permutation of it
func TestSortByPublished_DoesNotMutateInput(t *testing.T) {
	items := []AggregatedItem{
		itemAt("a", timeAt(2020, 1, 1)),
		itemAt("b", timeAt(2024, 1, 1)),
		itemAt("c", nil),
	}

	sorted := SortByPublished(items)

	assert.Equal(t, []string{"a", "b", "c"}, titles(items))
	require.Len(t, sorted, len(items))
	assert.ElementsMatch(t, items, sorted)
}

// TestSortByPublished_Empty verifies empty input gives empty output
func TestSortByPublished_Empty(t *testing.T) {
	assert.Empty(t, SortByPublished(nil))
	assert.NotNil(t, SortByPublished(nil))
}
