package main

// diffEntries compares a previous snapshot's entries against a fresh
// extraction. Added entries keep the order they appear in current; removed
// entries originate from a map and carry no particular order.
func diffEntries(prev map[string]Entry, current []Entry) (added, removed []Entry) {
	currentIDs := make(map[string]struct{}, len(current))
	for _, e := range current {
		currentIDs[e.ID] = struct{}{}
	}

	for _, e := range current {
		if _, ok := prev[e.ID]; !ok {
			added = append(added, e)
		}
	}
	for id, e := range prev {
		if _, ok := currentIDs[id]; !ok {
			removed = append(removed, e)
		}
	}
	return added, removed
}

// entriesByID indexes a snapshot's items for diffing.
func entriesByID(items []Entry) map[string]Entry {
	m := make(map[string]Entry, len(items))
	for _, e := range items {
		if _, ok := m[e.ID]; !ok {
			m[e.ID] = e
		}
	}
	return m
}
