// Package core implements the inventory reconciliation pipeline for
// warehouse cycle counts.
//
// This package contains all domain logic independent of any UI or transport
// layer. It can be driven by web handlers, CLI tools, or tests without
// modification. Data flows one direction through the pipeline:
//
//	raw rows -> validated/deduplicated import records -> session scope
//	         -> count actions -> metrics
//
// with the audit logger observing every transition as a side channel.
//
// # Components
//
//   - Validation: raw rows are checked against the declarative rules in
//     internal/schema, then coerced into [InventoryImportRecord] values.
//   - [Deduplicate]: removes rows whose (PalletID, Bin) pair was already
//     seen, preserving input order.
//   - [Service]: the main entry point for imports, session lifecycle and
//     count recording. All state-changing operations go through it.
//   - Metrics: [VarianceStats] and [SessionMetrics] aggregate count actions
//     into variance and progress figures.
//   - [Auditor]: append-only audit trail. Logging never fails upward; a
//     persistence failure degrades observability, never functionality.
//
// # Storage
//
// The pipeline persists through the [Store] interface, a simple local
// key-sorted table store with get/put/scan semantics over four tables
// ([TableInventory], [TableSessions], [TableActions], [TableAudit]).
// Uniqueness invariants are enforced by checking before insert, not by
// locking: a single operator session is the unit of concurrency.
//
// # Error Handling
//
// Domain failures are typed [*Error] values carrying a [Kind]
// (InvalidScope, InvalidTransition, SessionClosed, ...). Row-level
// validation failures are collected into result lists rather than raised,
// so one bad row never aborts an import. Nothing in the pipeline is fatal
// to the process.
package core
