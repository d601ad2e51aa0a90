package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/numbering"
	"github.com/famscrap/scrapbill/internal/weight"
)

// SaveBill persists a new bill and its lines in one transaction. The bill
// number is assigned inside the transaction so the read-max-then-increment
// sequence is serialized with the insert. The total is derived from the line
// amounts; whatever the caller put in bill.TotalAmount is ignored.
func (s *SQLiteStore) SaveBill(ctx context.Context, bill *models.Bill) (int64, error) {
	if len(bill.Lines) == 0 {
		return 0, fmt.Errorf("%w: bill has no line items", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bill.CustomerName == "" {
		bill.CustomerName = models.DefaultCustomerName
	}
	if bill.Date.IsZero() {
		bill.Date = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("begin save", err)
	}
	defer tx.Rollback()

	number, err := s.nextBillNumber(ctx, tx, bill.Date)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bills (bill_number, customer_name, customer_phone, total_amount, date, is_synced, sync_attempts)
		 VALUES (?, ?, ?, 0, ?, 0, 0)`,
		number, bill.CustomerName, bill.CustomerPhone, formatTime(bill.Date),
	)
	if err != nil {
		return 0, persistErr("insert bill", err)
	}
	billID, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("bill id", err)
	}

	total, err := s.insertLines(ctx, tx, billID, bill.Lines)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bills SET total_amount = ? WHERE id = ?", total, billID,
	); err != nil {
		return 0, persistErr("finalize total", err)
	}

	if err := s.writeSnapshot(ctx, tx, billID, bill.Lines, total); err != nil {
		return 0, err
	}
	if err := s.enqueue(ctx, tx, billID, "create"); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("commit save", err)
	}

	bill.ID = billID
	bill.BillNumber = number
	bill.TotalAmount = total
	bill.IsSynced = false
	bill.SyncAttempts = 0
	return billID, nil
}

// UpdateBill replaces the bill's lines wholesale (delete then insert),
// overwrites the header fields and recomputes the total. The edit resets the
// bill to unsynced so the remote copy is never silently stale, and zeroes
// the attempt counter so the edited bill is retry-eligible again.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	if len(bill.Lines) == 0 {
		return fmt.Errorf("%w: bill has no line items", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin update", err)
	}
	defer tx.Rollback()

	var number string
	err = tx.QueryRowContext(ctx, "SELECT bill_number FROM bills WHERE id = ?", bill.ID).Scan(&number)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: bill %d", models.ErrNotFound, bill.ID)
	}
	if err != nil {
		return persistErr("load bill for update", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM bill_items WHERE bill_id = ?", bill.ID); err != nil {
		return persistErr("delete old lines", err)
	}

	total, err := s.insertLines(ctx, tx, bill.ID, bill.Lines)
	if err != nil {
		return err
	}

	if bill.CustomerName == "" {
		bill.CustomerName = models.DefaultCustomerName
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bills SET customer_name = ?, customer_phone = ?, total_amount = ?,
		 is_synced = 0, sync_attempts = 0 WHERE id = ?`,
		bill.CustomerName, bill.CustomerPhone, total, bill.ID,
	); err != nil {
		return persistErr("update bill header", err)
	}

	if err := s.writeSnapshot(ctx, tx, bill.ID, bill.Lines, total); err != nil {
		return err
	}
	if err := s.enqueue(ctx, tx, bill.ID, "update"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit update", err)
	}

	bill.BillNumber = number
	bill.TotalAmount = total
	bill.IsSynced = false
	bill.SyncAttempts = 0
	return nil
}

// nextBillNumber finds the highest bill number for today's prefix inside the
// save transaction and increments it. Unique per day-prefix under the
// store's single-writer lock.
func (s *SQLiteStore) nextBillNumber(ctx context.Context, tx *sql.Tx, date time.Time) (string, error) {
	prefix := numbering.PrefixFor(s.billTag, date)

	var last sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT MAX(bill_number) FROM bills WHERE bill_number LIKE ?", prefix+"%",
	).Scan(&last)
	if err != nil {
		return "", persistErr("query last bill number", err)
	}
	return numbering.Next(prefix, last.String)
}

// insertLines inserts the lines for billID, updates each referenced item's
// cached price and returns the derived 2-decimal total. Each line's ItemName
// and UnitType are filled from the items table.
func (s *SQLiteStore) insertLines(ctx context.Context, tx *sql.Tx, billID int64, lines []models.BillLine) (float64, error) {
	var total float64
	for i := range lines {
		line := &lines[i]

		var name string
		var unitType string
		err := tx.QueryRowContext(ctx,
			"SELECT name, unit_type FROM items WHERE id = ?", line.ItemID,
		).Scan(&name, &unitType)
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: item %d referenced by bill line", models.ErrNotFound, line.ItemID)
		}
		if err != nil {
			return 0, persistErr("load line item", err)
		}
		line.ItemName = name
		line.UnitType = models.UnitType(unitType)
		line.BillID = billID
		if line.WeightMode == "" {
			line.WeightMode = models.ModeNormal
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO bill_items (bill_id, item_id, original_weight, l_weight, reduced_weight,
			 final_weight, weight_mode, quantity, price_per_kg, price_per_unit, amount)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			billID, line.ItemID, line.OriginalWeight, line.LWeight, line.ReducedWeight,
			line.FinalWeight, string(line.WeightMode), line.Quantity,
			line.PricePerKg, line.PricePerUnit, line.Amount,
		)
		if err != nil {
			return 0, persistErr("insert bill line", err)
		}
		if line.ID, err = res.LastInsertId(); err != nil {
			return 0, persistErr("line id", err)
		}

		// Price cache: the item remembers the price last used on a bill.
		var cacheErr error
		if line.UnitType == models.UnitCount {
			_, cacheErr = tx.ExecContext(ctx,
				"UPDATE items SET last_price_per_unit = ? WHERE id = ?", line.PricePerUnit, line.ItemID)
		} else {
			_, cacheErr = tx.ExecContext(ctx,
				"UPDATE items SET last_price_per_kg = ? WHERE id = ?", line.PricePerKg, line.ItemID)
		}
		if cacheErr != nil {
			return 0, persistErr("update item price cache", cacheErr)
		}

		total += line.Amount
	}
	return weight.Round2(total), nil
}

// writeSnapshot records the bill's state for edit-history diffing.
func (s *SQLiteStore) writeSnapshot(ctx context.Context, tx *sql.Tx, billID int64, lines []models.BillLine, total float64) error {
	data := models.SnapshotData{
		SchemaVersion: models.SnapshotSchemaVersion,
		TotalAmount:   total,
		Items:         make([]models.SnapshotItem, 0, len(lines)),
	}
	for i := range lines {
		line := &lines[i]
		item := models.SnapshotItem{
			ID:     line.ItemID,
			Name:   line.ItemName,
			Amount: line.Amount,
		}
		if line.UnitType == models.UnitCount {
			item.Quantity = line.Quantity
			item.Price = line.PricePerUnit
		} else {
			item.Weight = line.BilledWeight()
			item.Price = line.PricePerKg
		}
		data.Items = append(data.Items, item)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return persistErr("encode snapshot", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO bill_snapshots (bill_id, data, created_at) VALUES (?, ?, ?)",
		billID, string(raw), formatTime(time.Now()),
	); err != nil {
		return persistErr("insert snapshot", err)
	}
	return nil
}

// enqueue adds a sync-queue audit entry for the bill.
func (s *SQLiteStore) enqueue(ctx context.Context, tx *sql.Tx, billID int64, operation string) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sync_queue (id, bill_id, operation, created_at) VALUES (?, ?, ?, ?)",
		uuid.New().String(), billID, operation, formatTime(time.Now()),
	); err != nil {
		return persistErr("enqueue sync entry", err)
	}
	return nil
}

const billColumns = `id, bill_number, customer_name, customer_phone, total_amount, date,
	is_synced, sync_attempts, last_sync_attempt`

func scanBill(scan func(dest ...any) error) (*models.Bill, error) {
	var (
		bill     models.Bill
		date     string
		synced   int
		lastTry  sql.NullString
	)
	if err := scan(&bill.ID, &bill.BillNumber, &bill.CustomerName, &bill.CustomerPhone,
		&bill.TotalAmount, &date, &synced, &bill.SyncAttempts, &lastTry); err != nil {
		return nil, err
	}
	parsed, err := parseTime(date)
	if err != nil {
		return nil, err
	}
	bill.Date = parsed
	bill.IsSynced = synced != 0
	if lastTry.Valid {
		t, err := parseTime(lastTry.String)
		if err != nil {
			return nil, err
		}
		bill.LastSyncAttempt = &t
	}
	return &bill, nil
}

// GetBillDetails returns the bill with lines joined to items. For L-mode
// lines the displayed amount is recomputed from the billed (displayed)
// weight so the reported amount always matches what the customer paid, even
// if the stored amount ever drifted.
func (s *SQLiteStore) GetBillDetails(ctx context.Context, id int64) (*models.Bill, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+billColumns+" FROM bills WHERE id = ?", id)
	bill, err := scanBill(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bill %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, persistErr("get bill", err)
	}

	if bill.Lines, err = s.billLines(ctx, id); err != nil {
		return nil, err
	}
	return bill, nil
}

// billLines loads the materialized lines for one bill, oldest first.
func (s *SQLiteStore) billLines(ctx context.Context, billID int64) ([]models.BillLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bi.id, bi.bill_id, bi.item_id, i.name, i.unit_type,
		        bi.original_weight, bi.l_weight, bi.reduced_weight, bi.final_weight,
		        bi.weight_mode, bi.quantity, bi.price_per_kg, bi.price_per_unit, bi.amount
		 FROM bill_items bi
		 JOIN items i ON i.id = bi.item_id
		 WHERE bi.bill_id = ?
		 ORDER BY bi.id`,
		billID,
	)
	if err != nil {
		return nil, persistErr("query bill lines", err)
	}
	defer rows.Close()

	var lines []models.BillLine
	for rows.Next() {
		var (
			line     models.BillLine
			unitType string
			mode     string
		)
		if err := rows.Scan(&line.ID, &line.BillID, &line.ItemID, &line.ItemName, &unitType,
			&line.OriginalWeight, &line.LWeight, &line.ReducedWeight, &line.FinalWeight,
			&mode, &line.Quantity, &line.PricePerKg, &line.PricePerUnit, &line.Amount); err != nil {
			return nil, persistErr("scan bill line", err)
		}
		line.UnitType = models.UnitType(unitType)
		line.WeightMode = models.WeightMode(mode)

		if line.UnitType == models.UnitWeight && line.WeightMode == models.ModeL {
			line.Amount = weight.Round2(line.LWeight * line.PricePerKg)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate bill lines", err)
	}
	return lines, nil
}

// ListBills returns all bill headers, newest first.
func (s *SQLiteStore) ListBills(ctx context.Context) ([]models.Bill, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+billColumns+" FROM bills ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, persistErr("list bills", err)
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		bill, err := scanBill(rows.Scan)
		if err != nil {
			return nil, persistErr("scan bill", err)
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate bills", err)
	}
	return bills, nil
}

// DeleteBill removes the bill; lines, queue entries and snapshots cascade.
func (s *SQLiteStore) DeleteBill(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	if err != nil {
		return persistErr("delete bill", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete bill", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bill %d", models.ErrNotFound, id)
	}
	return nil
}

// UnsyncedBills returns all unsynced bills, oldest first, with lines
// materialized. Earliest transactions sync first.
func (s *SQLiteStore) UnsyncedBills(ctx context.Context) ([]models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE is_synced = 0 ORDER BY date ASC, id ASC")
	if err != nil {
		return nil, persistErr("list unsynced bills", err)
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		bill, err := scanBill(rows.Scan)
		if err != nil {
			return nil, persistErr("scan unsynced bill", err)
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate unsynced bills", err)
	}

	for i := range bills {
		if bills[i].Lines, err = s.billLines(ctx, bills[i].ID); err != nil {
			return nil, err
		}
	}
	return bills, nil
}

// MarkSynced records a successful sync and clears the bill's queue entries.
func (s *SQLiteStore) MarkSynced(ctx context.Context, billID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin mark synced", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE bills SET is_synced = 1, sync_attempts = 0, last_sync_attempt = ? WHERE id = ?",
		formatTime(at), billID,
	)
	if err != nil {
		return persistErr("mark synced", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("mark synced", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bill %d", models.ErrNotFound, billID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sync_queue WHERE bill_id = ?", billID); err != nil {
		return persistErr("clear sync queue", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit mark synced", err)
	}
	return nil
}

// RecordSyncFailure increments the attempt counter and stamps the attempt
// time. The bill stays unsynced.
func (s *SQLiteStore) RecordSyncFailure(ctx context.Context, billID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE bills SET sync_attempts = sync_attempts + 1, last_sync_attempt = ? WHERE id = ?",
		formatTime(at), billID,
	)
	if err != nil {
		return persistErr("record sync failure", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("record sync failure", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bill %d", models.ErrNotFound, billID)
	}
	return nil
}

// PendingQueue returns the outstanding sync-queue entries, oldest first.
func (s *SQLiteStore) PendingQueue(ctx context.Context) ([]models.SyncQueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bill_id, operation, created_at FROM sync_queue ORDER BY created_at ASC")
	if err != nil {
		return nil, persistErr("list sync queue", err)
	}
	defer rows.Close()

	var entries []models.SyncQueueEntry
	for rows.Next() {
		var (
			entry   models.SyncQueueEntry
			created string
		)
		if err := rows.Scan(&entry.ID, &entry.BillID, &entry.Operation, &created); err != nil {
			return nil, persistErr("scan sync queue entry", err)
		}
		if entry.CreatedAt, err = parseTime(created); err != nil {
			return nil, persistErr("scan sync queue entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate sync queue", err)
	}
	return entries, nil
}

// Snapshots returns the bill's stored snapshots, oldest first.
func (s *SQLiteStore) Snapshots(ctx context.Context, billID int64) ([]models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bill_id, data, created_at FROM bill_snapshots WHERE bill_id = ? ORDER BY id ASC",
		billID,
	)
	if err != nil {
		return nil, persistErr("list snapshots", err)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		var (
			snap    models.Snapshot
			data    string
			created string
		)
		if err := rows.Scan(&snap.ID, &snap.BillID, &data, &created); err != nil {
			return nil, persistErr("scan snapshot", err)
		}
		snap.Data = []byte(data)
		if snap.CreatedAt, err = parseTime(created); err != nil {
			return nil, persistErr("scan snapshot", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate snapshots", err)
	}
	return snaps, nil
}
