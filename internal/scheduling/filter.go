package scheduling

// FilterSlots drops candidate slots whose buffer-expanded interval overlaps
// any blocked interval. The buffer widens the candidate, never the blocked
// set: buffer semantics protect transition time around a new booking, they do
// not grow other people's events. Survivors keep their original order.
func FilterSlots(candidates, blocked []Interval, bufferMin int) []Interval {
	if len(candidates) == 0 {
		return nil
	}
	kept := make([]Interval, 0, len(candidates))
	for _, slot := range candidates {
		expanded := slot.Expand(bufferMin)
		conflict := false
		for _, b := range blocked {
			if expanded.Overlaps(b) {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, slot)
		}
	}
	return kept
}
