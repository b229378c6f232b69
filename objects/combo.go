package objects

// AssignCombos fills the combo fields of top level objects in order.
func AssignCombos(objs []HitObject) {
	var last *Base
	for _, o := range objs {
		b := o.Common()
		b.LastInCombo = false
		if last == nil {
			b.ComboIndex = 0
			b.ComboIndexWithOffsets = 0
			b.IndexInCombo = 0
		} else {
			b.ComboIndex = last.ComboIndex
			b.ComboIndexWithOffsets = last.ComboIndexWithOffsets
			b.IndexInCombo = last.IndexInCombo + 1
		}

		if b.NewCombo || last == nil {
			b.IndexInCombo = 0
			b.ComboIndex++
			b.ComboIndexWithOffsets += b.ComboOffset + 1
			if last != nil {
				last.LastInCombo = true
			}
		}
		last = b
	}
	if last != nil {
		last.LastInCombo = true
	}
}
