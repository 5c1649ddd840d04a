// ABOUTME: Stable ordering helpers for subscription listings
// ABOUTME: Oldest first, ties broken by id

package subscription

import "sort"

func sortByCreated(subs []Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
}

// Sorted returns the values of all ordered oldest first.
func Sorted(all map[string]Subscription) []Subscription {
	out := make([]Subscription, 0, len(all))
	for _, sub := range all {
		out = append(out, sub)
	}
	sortByCreated(out)
	return out
}
