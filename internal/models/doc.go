// Package models defines the core domain models for the scrapbill ledger.
//
// # Models
//
//   - Item: a sellable unit, priced per kg (weight items) or per piece (count items)
//   - Bill: one purchase transaction, with its sync bookkeeping
//   - BillLine: one item's contribution to a bill
//   - WeightSetting: named configuration values (currently the L-mode reduction factor)
//   - SyncQueueEntry: durable audit marker for a pending remote operation
//   - Snapshot: versioned record of a bill used for edit-history diffing
//
// # Design Principles
//
// 1. **Derived state is never trusted from callers**: line amounts and bill
// totals are computed by the weight model at write time and recomputed at
// sync time.
// 2. **Lines are a tagged variant**: a BillLine is either a weight line or a
// count line, discriminated by the referenced item's unit type. Weight fields
// are zero on count lines and Quantity is zero on weight lines.
// 3. **Avoid circular references**: lines reference bills and items by ID.
package models
