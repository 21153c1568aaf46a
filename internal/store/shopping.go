package store

import (
	"database/sql"
	"fmt"

	"github.com/quailhollow/cradle/internal/model"
)

// ShoppingStore owns the shopping item collection. The category set is
// derived from the items by query, never stored, so it cannot drift.
type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func (s *ShoppingStore) GetByID(id string) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	err := s.db.QueryRow(
		`SELECT id, name, category, notes FROM shopping_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.Category, &item.Notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shopping item: %w", err)
	}

	options, err := s.listPriceOptions(item.ID)
	if err != nil {
		return nil, err
	}
	item.PriceOptions = options
	return &item, nil
}

func (s *ShoppingStore) List() ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(`SELECT id, name, category, notes FROM shopping_items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		var item model.ShoppingItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Notes); err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		options, err := s.listPriceOptions(items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].PriceOptions = options
	}
	return items, nil
}

func (s *ShoppingStore) listPriceOptions(itemID string) ([]model.PriceOption, error) {
	rows, err := s.db.Query(
		`SELECT id, store, price, is_starred FROM price_options WHERE item_id = ? ORDER BY sort_order ASC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list price options: %w", err)
	}
	defer rows.Close()

	var options []model.PriceOption
	for rows.Next() {
		var po model.PriceOption
		var starred int
		if err := rows.Scan(&po.ID, &po.Store, &po.Price, &starred); err != nil {
			return nil, fmt.Errorf("scan price option: %w", err)
		}
		po.IsStarred = starred != 0
		options = append(options, po)
	}
	return options, rows.Err()
}

func (s *ShoppingStore) Add(item model.ShoppingItem) (*model.ShoppingItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add item: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO shopping_items (id, name, category, notes) VALUES (?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.Notes,
	); err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}

	if err := insertPriceOptions(tx, item.ID, item.PriceOptions); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add item: %w", err)
	}
	return s.GetByID(item.ID)
}

// Update replaces the item and its price options wholesale. Unknown IDs are
// a no-op returning (nil, nil).
func (s *ShoppingStore) Update(item model.ShoppingItem) (*model.ShoppingItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin update item: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE shopping_items SET name = ?, category = ?, notes = ? WHERE id = ?`,
		item.Name, item.Category, item.Notes, item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(`DELETE FROM price_options WHERE item_id = ?`, item.ID); err != nil {
		return nil, fmt.Errorf("clear price options: %w", err)
	}
	if err := insertPriceOptions(tx, item.ID, item.PriceOptions); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update item: %w", err)
	}
	return s.GetByID(item.ID)
}

// Remove deletes the item; price options cascade. Unknown IDs are a no-op.
func (s *ShoppingStore) Remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// ReplaceAll swaps the entire collection, used when applying a restored backup.
func (s *ShoppingStore) ReplaceAll(items []model.ShoppingItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace items: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM shopping_items`); err != nil {
		return fmt.Errorf("clear shopping items: %w", err)
	}
	for _, item := range items {
		if _, err := tx.Exec(
			`INSERT INTO shopping_items (id, name, category, notes) VALUES (?, ?, ?, ?)`,
			item.ID, item.Name, item.Category, item.Notes,
		); err != nil {
			return fmt.Errorf("insert shopping item: %w", err)
		}
		if err := insertPriceOptions(tx, item.ID, item.PriceOptions); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace items: %w", err)
	}
	return nil
}

// AddPriceOption appends an option to an item. No-op if the item is absent.
func (s *ShoppingStore) AddPriceOption(itemID string, po model.PriceOption) error {
	var starred int
	if po.IsStarred {
		starred = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO price_options (id, item_id, store, price, is_starred, sort_order)
		 SELECT ?, id, ?, ?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM price_options WHERE item_id = ?)
		 FROM shopping_items WHERE id = ?`,
		po.ID, po.Store, po.Price, starred, itemID, itemID,
	)
	if err != nil {
		return fmt.Errorf("insert price option: %w", err)
	}
	return nil
}

// UpdatePriceOption replaces an option's store and price. Starring is
// exclusively ToggleStar's job so the one-starred invariant holds.
func (s *ShoppingStore) UpdatePriceOption(itemID string, po model.PriceOption) error {
	_, err := s.db.Exec(
		`UPDATE price_options SET store = ?, price = ? WHERE item_id = ? AND id = ?`,
		po.Store, po.Price, itemID, po.ID,
	)
	if err != nil {
		return fmt.Errorf("update price option: %w", err)
	}
	return nil
}

func (s *ShoppingStore) RemovePriceOption(itemID, priceOptionID string) error {
	_, err := s.db.Exec(
		`DELETE FROM price_options WHERE item_id = ? AND id = ?`,
		itemID, priceOptionID,
	)
	if err != nil {
		return fmt.Errorf("delete price option: %w", err)
	}
	return nil
}

// ToggleStar clears the star on every option of the item, then stars the
// targeted one — a single atomic replace, so at most one option per item is
// ever starred. Unknown item or option IDs are a silent no-op.
func (s *ShoppingStore) ToggleStar(itemID, priceOptionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin toggle star: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM price_options WHERE item_id = ? AND id = ?`,
		itemID, priceOptionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check price option: %w", err)
	}
	if exists == 0 {
		return nil
	}

	if _, err := tx.Exec(`UPDATE price_options SET is_starred = 0 WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("clear stars: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE price_options SET is_starred = 1 WHERE item_id = ? AND id = ?`,
		itemID, priceOptionID,
	); err != nil {
		return fmt.Errorf("set star: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit toggle star: %w", err)
	}
	return nil
}

// Categories returns the distinct non-empty categories among current items.
func (s *ShoppingStore) Categories() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT category FROM shopping_items WHERE category != '' ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("list shopping categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func insertPriceOptions(tx *sql.Tx, itemID string, options []model.PriceOption) error {
	for i, po := range options {
		var starred int
		if po.IsStarred {
			starred = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO price_options (id, item_id, store, price, is_starred, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
			po.ID, itemID, po.Store, po.Price, starred, i,
		); err != nil {
			return fmt.Errorf("insert price option: %w", err)
		}
	}
	return nil
}
