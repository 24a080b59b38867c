package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/palletline/cyclecount/internal/schema"
)

// Import runs one batch of raw spreadsheet rows through the full intake
// pipeline: per-row validation, deduplication within the batch, the
// persisted (PalletID, Bin) uniqueness check, and storage. Invalid and
// duplicate rows land in the rejected list with their reasons; they never
// abort the batch. Violating rows are rejected, not overwritten: superseding
// existing inventory requires a new import batch for different pallets.
//
// A SYSTEM audit entry records the batch outcome. Storage failures abort the
// batch with a StorageFailed error and an ERROR audit entry; rows persisted
// before the failure remain stored (appends are sequential, there is no
// rollback), and a retried batch rejects them as duplicates.
func (s *Service) Import(ctx context.Context, rows []RawRow, operatorID string) (*ImportResult, error) {
	result := &ImportResult{
		BatchID:  uuid.NewString(),
		Imported: []InventoryImportRecord{},
		Rejected: []RejectedRow{},
		Total:    len(rows),
	}

	// Validation first; only structurally valid rows reach the deduplicator.
	valid := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		if errs := schema.Validate(row, schema.InventoryFields); len(errs) > 0 {
			result.Rejected = append(result.Rejected, RejectedRow{Row: row, Reason: schema.Messages(errs)})
			continue
		}
		valid = append(valid, row)
	}

	deduped := Deduplicate(valid)
	result.Rejected = append(result.Rejected, deduped.Duplicates...)

	importedAt := s.now()
	for _, row := range deduped.Unique {
		rec := coerceInventoryRow(row)
		rec.ID = uuid.NewString()
		rec.BatchID = result.BatchID
		rec.ImportedAt = importedAt

		_, exists, err := s.store.Get(ctx, TableInventory, rec.storeKey())
		if err != nil {
			werr := Wrap(KindStorageFailed, err, "checking import record %s", rec.storeKey())
			s.audit.Error(ctx, "inventory_import", "", werr)
			return nil, werr
		}
		if exists {
			result.Rejected = append(result.Rejected, RejectedRow{Row: row, Reason: DuplicateReason})
			continue
		}

		if err := s.putJSON(ctx, TableInventory, rec.storeKey(), rec); err != nil {
			s.audit.Error(ctx, "inventory_import", "", err)
			return nil, err
		}
		result.Imported = append(result.Imported, rec)
	}

	s.audit.Log(ctx, ActorSystem, "inventory_import", "", map[string]any{
		"batchId":  result.BatchID,
		"operator": operatorID,
		"total":    result.Total,
		"imported": len(result.Imported),
		"rejected": len(result.Rejected),
	})

	return result, nil
}

// coerceInventoryRow converts a validated raw row into a typed record,
// applying the schema defaults (UOM "Unit", Status Active). Identity, batch
// and timestamp are the importer's to fill.
func coerceInventoryRow(row RawRow) InventoryImportRecord {
	qty, _ := strconv.Atoi(strings.TrimSpace(row[schema.ColSystemQuantity]))

	return InventoryImportRecord{
		Location:       strings.TrimSpace(row[schema.ColLocation]),
		Bin:            strings.TrimSpace(row[schema.ColBin]),
		PalletID:       strings.TrimSpace(row[schema.ColPalletID]),
		ItemNumber:     strings.TrimSpace(row[schema.ColItemNumber]),
		SystemQuantity: qty,
		Description:    strings.TrimSpace(row[schema.ColDescription]),
		UOM:            withDefault(row[schema.ColUOM], "Unit"),
		ExpiryDate:     strings.TrimSpace(row[schema.ColExpiryDate]),
		Status:         coerceStatus(row[schema.ColStatus]),
	}
}

func withDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// coerceStatus maps a validated status cell to its canonical enum value.
func coerceStatus(v string) RecordStatus {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "inactive":
		return StatusInactive
	case "pending":
		return StatusPending
	default:
		return StatusActive
	}
}
