package merge

import "github.com/chathive/chathive/internal/model"

// compareHeads orders two messages by the tuple (timestamp, source_id,
// searchable-string); less and equal describe the ordering outcome.
// orderable is false only for the ambiguous case this tuple cannot
// resolve: equal timestamps, differing searchable text, and no source_id
// on at least one side to break the tie.
func compareHeads(a, b model.Message) (less, equal, orderable bool) {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp, false, true
	}

	if a.SourceID != nil && b.SourceID != nil && *a.SourceID != *b.SourceID {
		return *a.SourceID < *b.SourceID, false, true
	}

	ta, tb := a.SearchableString(), b.SearchableString()
	if ta == tb {
		return false, true, true
	}
	if a.SourceID == nil || b.SourceID == nil {
		return false, false, false
	}
	return ta < tb, false, true
}

func sameSourceID(a, b model.Message) bool {
	return a.SourceID != nil && b.SourceID != nil && *a.SourceID == *b.SourceID
}
