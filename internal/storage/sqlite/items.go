package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/famscrap/scrapbill/internal/models"
)

// CreateItem inserts a new item. Names are unique and case-sensitive.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.Item) (int64, error) {
	if item.Name == "" {
		return 0, fmt.Errorf("%w: item name is required", models.ErrValidation)
	}
	if !item.UnitType.Valid() {
		return 0, fmt.Errorf("%w: unknown unit type %q", models.ErrValidation, item.UnitType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM items WHERE name = ?", item.Name).Scan(&existing)
	if err == nil {
		return 0, fmt.Errorf("%w: item %q already exists", models.ErrValidation, item.Name)
	}
	if err != sql.ErrNoRows {
		return 0, persistErr("check item name", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO items (name, unit_type, last_price_per_kg, last_price_per_unit) VALUES (?, ?, ?, ?)",
		item.Name, string(item.UnitType), item.LastPricePerKg, item.LastPricePerUnit,
	)
	if err != nil {
		return 0, persistErr("insert item", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return 0, persistErr("item id", err)
	}
	return item.ID, nil
}

func scanItem(scan func(dest ...any) error) (*models.Item, error) {
	var (
		item     models.Item
		unitType string
	)
	if err := scan(&item.ID, &item.Name, &unitType, &item.LastPricePerKg, &item.LastPricePerUnit); err != nil {
		return nil, err
	}
	item.UnitType = models.UnitType(unitType)
	return &item, nil
}

// GetItem returns an item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, unit_type, last_price_per_kg, last_price_per_unit FROM items WHERE id = ?", id)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, persistErr("get item", err)
	}
	return item, nil
}

// GetItemByName returns an item by its unique name.
func (s *SQLiteStore) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, unit_type, last_price_per_kg, last_price_per_unit FROM items WHERE name = ?", name)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %q", models.ErrNotFound, name)
	}
	if err != nil {
		return nil, persistErr("get item by name", err)
	}
	return item, nil
}

// ListItems returns all items ordered by name.
func (s *SQLiteStore) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, unit_type, last_price_per_kg, last_price_per_unit FROM items ORDER BY name")
	if err != nil {
		return nil, persistErr("list items", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, persistErr("scan item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate items", err)
	}
	return items, nil
}

// UpdateItemPrices overwrites the item's cached prices (explicit price edit,
// as opposed to the cache refresh that happens on every bill save).
func (s *SQLiteStore) UpdateItemPrices(ctx context.Context, id int64, perKg, perUnit float64) error {
	if perKg < 0 || perUnit < 0 {
		return fmt.Errorf("%w: prices must be non-negative", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET last_price_per_kg = ?, last_price_per_unit = ? WHERE id = ?",
		perKg, perUnit, id,
	)
	if err != nil {
		return persistErr("update item prices", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("update item prices", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: item %d", models.ErrNotFound, id)
	}
	return nil
}

// DeleteItem removes an item, refusing while any bill line references it.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bill_items WHERE item_id = ?", id,
	).Scan(&refs); err != nil {
		return persistErr("count item references", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: item %d appears on %d bill line(s)", models.ErrItemInUse, id, refs)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return persistErr("delete item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete item", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: item %d", models.ErrNotFound, id)
	}
	return nil
}

// EnsureBottleType returns the count-type "<name> Bottle" item, creating it
// if absent. Helper for the implicit bottle items the entry forms create.
func (s *SQLiteStore) EnsureBottleType(ctx context.Context, name string) (*models.Item, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: bottle type name is required", models.ErrValidation)
	}
	fullName := name + " Bottle"

	item, err := s.GetItemByName(ctx, fullName)
	if err == nil {
		return item, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	created := &models.Item{Name: fullName, UnitType: models.UnitCount}
	if _, err := s.CreateItem(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}
