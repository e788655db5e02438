package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ppiankov/cultura/internal/model"
)

var itemColumns = []string{
	"id", "title", "category", "confidence", "description", "cultural_context",
	"historical_period", "location", "significance", "image_path", "created_by",
	"validated", "validated_by", "created_at", "updated_at",
}

// CreateItem inserts item, assigning an ID and timestamps when unset.
// The stored copy is written back into item.
func (s *Store) CreateItem(ctx context.Context, item *model.CulturalItem) error {
	return s.insertItem(ctx, s.db, item)
}

func (s *Store) insertItem(ctx context.Context, ex execer, item *model.CulturalItem) error {
	if strings.TrimSpace(item.Title) == "" {
		return errors.New("item title is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if !item.Category.Valid() {
		item.Category = model.CategoryOther
	}
	item.CategoryLabel = item.Category.Label()
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	query, args, err := s.sb.Insert("items").
		Columns(itemColumns...).
		Values(
			item.ID, item.Title, string(item.Category), item.Confidence, item.Description,
			item.CulturalContext, item.HistoricalPeriod, item.Location, item.Significance,
			item.ImagePath, item.CreatedBy, boolToInt(item.Validated), item.ValidatedBy,
			formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building item insert: %w", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// GetItem returns the item with id or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id string) (*model.CulturalItem, error) {
	items, err := s.queryItems(ctx, s.sb.Select(itemColumns...).From("items").Where(sq.Eq{"id": id}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return items[0], nil
}

// ListItems returns items newest first, filtered by category when set.
func (s *Store) ListItems(ctx context.Context, category model.Category) ([]*model.CulturalItem, error) {
	q := s.sb.Select(itemColumns...).From("items")
	if category != "" {
		q = q.Where(sq.Eq{"category": string(category)})
	}
	return s.queryItems(ctx, q.OrderBy("created_at DESC"))
}

// ListItemsByUser returns the items created by userID, newest first.
func (s *Store) ListItemsByUser(ctx context.Context, userID string) ([]*model.CulturalItem, error) {
	return s.queryItems(ctx, s.sb.Select(itemColumns...).From("items").
		Where(sq.Eq{"created_by": userID}).
		OrderBy("created_at DESC"))
}

func (s *Store) queryItems(ctx context.Context, q sq.SelectBuilder) ([]*model.CulturalItem, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []*model.CulturalItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (*model.CulturalItem, error) {
	var (
		item      model.CulturalItem
		category  string
		validated int
		created   string
		updated   string
	)
	if err := rows.Scan(
		&item.ID, &item.Title, &category, &item.Confidence, &item.Description,
		&item.CulturalContext, &item.HistoricalPeriod, &item.Location, &item.Significance,
		&item.ImagePath, &item.CreatedBy, &validated, &item.ValidatedBy, &created, &updated,
	); err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	item.Category = model.Category(category)
	item.CategoryLabel = item.Category.Label()
	item.Validated = validated != 0

	var err error
	if item.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &item, nil
}
