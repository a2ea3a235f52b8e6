package domain

// Chunk partitions parcels into consecutive groups of at most max elements,
// preserving the original order within and across groups. A max of zero or
// less yields a single group.
func Chunk(parcels []Parcel, max int) [][]Parcel {
	if len(parcels) == 0 {
		return nil
	}
	if max <= 0 {
		return [][]Parcel{parcels}
	}

	groups := make([][]Parcel, 0, (len(parcels)+max-1)/max)
	for start := 0; start < len(parcels); start += max {
		end := start + max
		if end > len(parcels) {
			end = len(parcels)
		}
		groups = append(groups, parcels[start:end])
	}
	return groups
}
