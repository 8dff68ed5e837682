package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// TempItem is an ad-hoc logged consumption event not backed by a Grocy
// product. Macros are totals, not per-serving. Immutable once created
// except for deletion.
type TempItem struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Calories  float64   `json:"calories"`
	Carbs     float64   `json:"carbs"`
	Fats      float64   `json:"fats"`
	Protein   float64   `json:"protein"`
	Day       string    `json:"day"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTempItem inserts a temp item and returns its store-assigned id.
func (db *DB) CreateTempItem(name string, calories, carbs, fats, protein float64, day string) (int, error) {
	res, err := db.conn.Exec(`
		INSERT INTO grocy_temp_items (name, calories, carbs, fats, protein, day)
		VALUES (?, ?, ?, ?, ?, ?)
	`, name, calories, carbs, fats, protein, day)
	if err != nil {
		return 0, fmt.Errorf("ledger: create temp item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger: last insert id: %w", err)
	}
	return int(id), nil
}

// TempItemsForDay returns all temp items for one logical day, ordered by
// creation time.
func (db *DB) TempItemsForDay(day string) ([]TempItem, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, calories, carbs, fats, protein, day, created_at
		FROM grocy_temp_items WHERE day = ? ORDER BY created_at, id
	`, day)
	if err != nil {
		return nil, fmt.Errorf("ledger: temp items for day: %w", err)
	}
	defer rows.Close()

	var out []TempItem
	for rows.Next() {
		var it TempItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Calories, &it.Carbs, &it.Fats, &it.Protein, &it.Day, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// DeleteTempItem removes a temp item by id, reporting whether a row was
// actually deleted.
func (db *DB) DeleteTempItem(id int) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM grocy_temp_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("ledger: delete temp item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TempItemDays returns the distinct days that have temp items, most
// recent first. Lexical order equals chronological order for YYYY-MM-DD.
func (db *DB) TempItemDays() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT day FROM grocy_temp_items ORDER BY day DESC`)
	if err != nil {
		return nil, fmt.Errorf("ledger: temp item days: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		if day != "" {
			out = append(out, day)
		}
	}
	return out, rows.Err()
}

// GetConfig returns the stored value for key, or "" when the key is
// absent. Absence is not an error.
func (db *DB) GetConfig(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM grocy_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger: get config: %w", err)
	}
	return value, nil
}

// SetConfig upserts a config value. Set always overwrites; no history.
func (db *DB) SetConfig(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO grocy_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("ledger: set config: %w", err)
	}
	return nil
}
