package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/decoryard/decoryard/internal/model"
)

// itemIDPrefixes maps class types to the prefix used in generated item IDs.
var itemIDPrefixes = map[string]string{
	"Inflatable":   "INF",
	"Static Prop":  "PROP",
	"Animatronic":  "ANIM",
	"Plug":         "PLUG",
	"Cord":         "CORD",
	"Adapter":      "ADPT",
	"String Light": "STR",
	"Spot Light":   "SPOT",
}

// NewItemID generates a stable identifier for a new item, e.g. "INF-3f2a91c4".
func NewItemID(classType string) string {
	prefix, ok := itemIDPrefixes[classType]
	if !ok {
		prefix = "ITEM"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// CreateItem inserts a new catalog item. If item.ID is empty, one is
// generated from the class type.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	if item.ID == "" {
		item.ID = NewItemID(item.ClassType)
	}
	if item.Status == "" {
		item.Status = model.ItemStatusActive
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, short_name, class, class_type, female_ends, male_ends,
		                    power_inlet, watts, amps, notes, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ShortName, item.Class, item.ClassType, item.FemaleEnds, item.MaleEnds,
		item.PowerInlet, item.Watts, item.Amps, item.Notes, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

const itemColumns = `id, short_name, class, class_type, female_ends, male_ends,
	power_inlet, watts, amps, notes, image_mime, status, created_at, updated_at, deleted_at`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var notes, imageMime sql.NullString
	err := row.Scan(&item.ID, &item.ShortName, &item.Class, &item.ClassType,
		&item.FemaleEnds, &item.MaleEnds, &item.PowerInlet, &item.Watts, &item.Amps,
		&notes, &imageMime, &item.Status, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.Notes = notes.String
	item.ImageMime = imageMime.String
	return item, nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by status
// and/or class. Sorted by class, type, then short name.
func ListItems(ctx context.Context, db *sql.DB, status, class string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if class != "" {
		query += ` AND class = ?`
		args = append(args, class)
	}
	query += ` ORDER BY class, class_type, short_name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's editable metadata.
func UpdateItem(ctx context.Context, db *sql.DB, item *model.Item) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET short_name = ?, female_ends = ?, male_ends = ?, power_inlet = ?,
		        watts = ?, amps = ?, notes = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		item.ShortName, item.FemaleEnds, item.MaleEnds, item.PowerInlet,
		item.Watts, item.Amps, item.Notes, item.Status, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's photo.
func SetItemImage(ctx context.Context, db *sql.DB, id string, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// ListItemsWithImages returns the non-deleted items that have a photo,
// for the gallery.
func ListItemsWithImages(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE deleted_at IS NULL AND image IS NOT NULL
		 ORDER BY class, class_type, short_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items with images: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// NormalizeClassType trims and validates a class/type pair.
func NormalizeClassType(class, classType string) (string, string, error) {
	class = strings.TrimSpace(class)
	classType = strings.TrimSpace(classType)
	if !model.ValidClassType(class, classType) {
		return "", "", fmt.Errorf("unknown class/type: %s/%s", class, classType)
	}
	return class, classType, nil
}
