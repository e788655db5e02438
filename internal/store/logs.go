package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ppiankov/cultura/internal/model"
)

// SaveAnalysisLog records one model call and sets entry.ID.
func (s *Store) SaveAnalysisLog(ctx context.Context, entry *model.AnalysisLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	query, args, err := s.sb.Insert("analysis_logs").
		Columns("item_id", "image_hash", "raw_response", "processing_seconds", "tokens_used", "created_at").
		Values(entry.ItemID, entry.ImageHash, entry.RawResponse, entry.ProcessingSeconds, entry.TokensUsed, formatTime(entry.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building log insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("inserting analysis log: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading log id: %w", err)
	}
	return nil
}

// AnalysisLogs returns the logs recorded for imageHash, oldest first.
func (s *Store) AnalysisLogs(ctx context.Context, imageHash string) ([]*model.AnalysisLog, error) {
	query, args, err := s.sb.Select("id", "item_id", "image_hash", "raw_response", "processing_seconds", "tokens_used", "created_at").
		From("analysis_logs").
		Where(sq.Eq{"image_hash": imageHash}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building log query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying analysis logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.AnalysisLog
	for rows.Next() {
		var (
			entry   model.AnalysisLog
			created string
		)
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.ImageHash, &entry.RawResponse,
			&entry.ProcessingSeconds, &entry.TokensUsed, &created); err != nil {
			return nil, fmt.Errorf("scanning analysis log: %w", err)
		}
		if entry.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis logs: %w", err)
	}
	return logs, nil
}
