package note

import "sort"

// Prioritize filters out zero value notes and orders the rest for spending.
// The caller spends from the END of the returned slice.
//
// Notes sent to ephemeral addresses come first, then durable address notes,
// both partitions ordered by descending amount. Notes with equal keys keep
// their input order. The input slice is not modified.
func Prioritize(records []*SpendableNoteRecord) []*SpendableNoteRecord {
	filtered := make([]*SpendableNoteRecord, 0, len(records))
	for _, r := range records {
		if r.Note.Amount().IsZero() {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if ae, be := a.AddressIndex.IsEphemeral(), b.AddressIndex.IsEphemeral(); ae != be {
			return ae
		}
		return a.Note.Amount().Cmp(b.Note.Amount()) > 0
	})
	return filtered
}

// Queue holds prioritized notes of one asset.
type Queue struct {
	records []*SpendableNoteRecord
}

func NewQueue(records []*SpendableNoteRecord) *Queue {
	return &Queue{records: Prioritize(records)}
}

// Pop removes and returns the next note to spend, nil when the queue is
// empty.
func (q *Queue) Pop() *SpendableNoteRecord {
	if len(q.records) == 0 {
		return nil
	}
	r := q.records[len(q.records)-1]
	q.records = q.records[:len(q.records)-1]
	return r
}

func (q *Queue) Len() int {
	return len(q.records)
}
