package core

import (
	"strings"

	"github.com/palletline/cyclecount/internal/schema"
)

// DuplicateReason annotates rows rejected by the deduplicator.
const DuplicateReason = "Duplicate PalletID+Bin"

// DedupeResult holds the outcome of deduplicating one row sequence.
// len(Unique) + len(Duplicates) always equals the input length.
type DedupeResult struct {
	Unique     []RawRow      `json:"unique"`
	Duplicates []RejectedRow `json:"duplicates"`
}

// Deduplicate returns the rows whose (PalletID, Bin) pair has not been seen
// earlier in the sequence, preserving relative order. First occurrence wins;
// later occurrences are rejected even when other fields differ. Rows sharing
// a PalletID but differing in Bin are not duplicates: a pallet may appear in
// multiple bins, e.g. after a partial split.
//
// Deduplication runs strictly after per-row validation, so every row here is
// structurally valid already.
func Deduplicate(rows []RawRow) DedupeResult {
	res := DedupeResult{
		Unique:     make([]RawRow, 0, len(rows)),
		Duplicates: []RejectedRow{},
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := inventoryKey(strings.TrimSpace(row[schema.ColPalletID]), strings.TrimSpace(row[schema.ColBin]))
		if _, dup := seen[key]; dup {
			res.Duplicates = append(res.Duplicates, RejectedRow{Row: row, Reason: DuplicateReason})
			continue
		}
		seen[key] = struct{}{}
		res.Unique = append(res.Unique, row)
	}

	return res
}
