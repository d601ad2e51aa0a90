package sqlite

import (
	"database/sql"
	"fmt"
)

// schema contains the base tables. Statements are idempotent and run on
// every startup. Items must be created before bill_items due to the foreign
// key constraint.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    unit_type TEXT NOT NULL DEFAULT 'weight',
    last_price_per_kg REAL NOT NULL DEFAULT 0,
    last_price_per_unit REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_number TEXT NOT NULL UNIQUE,
    customer_name TEXT NOT NULL DEFAULT 'Walk-in Customer',
    customer_phone TEXT NOT NULL DEFAULT '',
    total_amount REAL NOT NULL DEFAULT 0,
    date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bill_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id INTEGER NOT NULL,
    item_id INTEGER NOT NULL,
    original_weight REAL NOT NULL DEFAULT 0,
    l_weight REAL NOT NULL DEFAULT 0,
    reduced_weight REAL NOT NULL DEFAULT 0,
    final_weight REAL NOT NULL DEFAULT 0,
    quantity INTEGER NOT NULL DEFAULT 0,
    price_per_kg REAL NOT NULL DEFAULT 0,
    price_per_unit REAL NOT NULL DEFAULT 0,
    amount REAL NOT NULL DEFAULT 0,
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE,
    FOREIGN KEY (item_id) REFERENCES items(id)
);

CREATE TABLE IF NOT EXISTS weight_settings (
    key TEXT PRIMARY KEY,
    value REAL NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_queue (
    id TEXT PRIMARY KEY,
    bill_id INTEGER NOT NULL,
    operation TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS bill_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id INTEGER NOT NULL,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_bill_items_bill_id ON bill_items(bill_id);
CREATE INDEX IF NOT EXISTS idx_bill_items_item_id ON bill_items(item_id);
CREATE INDEX IF NOT EXISTS idx_bills_bill_number ON bills(bill_number);
CREATE INDEX IF NOT EXISTS idx_sync_queue_bill_id ON sync_queue(bill_id);
CREATE INDEX IF NOT EXISTS idx_bill_snapshots_bill_id ON bill_snapshots(bill_id);
`

// additiveColumns lists columns added after the base schema shipped.
// Migration only ever adds columns with safe defaults, never alters or drops,
// so running it against any older database is safe.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"bills", "is_synced", "ALTER TABLE bills ADD COLUMN is_synced INTEGER NOT NULL DEFAULT 0"},
	{"bills", "sync_attempts", "ALTER TABLE bills ADD COLUMN sync_attempts INTEGER NOT NULL DEFAULT 0"},
	{"bills", "last_sync_attempt", "ALTER TABLE bills ADD COLUMN last_sync_attempt TEXT"},
	{"bill_items", "weight_mode", "ALTER TABLE bill_items ADD COLUMN weight_mode TEXT NOT NULL DEFAULT 'normal'"},
}

// runMigrations creates the base schema and adds any missing columns.
// Idempotent; runs on every startup.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	for _, mig := range additiveColumns {
		has, err := hasColumn(db, mig.table, mig.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := db.Exec(mig.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", mig.table, mig.column, err)
		}
	}
	return nil
}

// hasColumn inspects the table's column set via PRAGMA table_info.
func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan table_info for %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
