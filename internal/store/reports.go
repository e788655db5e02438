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

var reportColumns = []string{
	"id", "reported_by", "report_type", "reason", "title", "category", "description",
	"cultural_context", "historical_period", "location", "significance", "confidence",
	"image_path", "status", "reviewed_by", "reviewed_at", "admin_notes", "created_item_id",
	"created_at", "updated_at",
}

// CreateReport inserts report as PENDING, assigning an ID and timestamps.
func (s *Store) CreateReport(ctx context.Context, report *model.Report) error {
	if strings.TrimSpace(report.Title) == "" {
		return errors.New("report title is required")
	}
	if report.ReportedBy == "" {
		return errors.New("report author is required")
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Type == "" {
		report.Type = model.ReportNewElement
	}
	if !report.Category.Valid() {
		report.Category = model.CategoryOther
	}
	report.Status = model.ReportPending
	now := s.now()
	report.CreatedAt = now
	report.UpdatedAt = now

	query, args, err := s.sb.Insert("reports").
		Columns(reportColumns...).
		Values(
			report.ID, report.ReportedBy, string(report.Type), report.Reason, report.Title,
			string(report.Category), report.Description, report.CulturalContext,
			report.HistoricalPeriod, report.Location, report.Significance, report.Confidence,
			report.ImagePath, string(report.Status), report.ReviewedBy, nullTime(report),
			report.AdminNotes, report.CreatedItemID,
			formatTime(report.CreatedAt), formatTime(report.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building report insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

// GetReport returns the report with id or ErrNotFound.
func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	reports, err := s.queryReports(ctx, s.sb.Select(reportColumns...).From("reports").Where(sq.Eq{"id": id}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return reports[0], nil
}

// ListReports returns reports newest first, filtered by status when set.
func (s *Store) ListReports(ctx context.Context, status model.ReportStatus) ([]*model.Report, error) {
	q := s.sb.Select(reportColumns...).From("reports")
	if status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}
	return s.queryReports(ctx, q.OrderBy("created_at DESC"))
}

// ListReportsByUser returns the reports filed by userID, newest first.
func (s *Store) ListReportsByUser(ctx context.Context, userID string) ([]*model.Report, error) {
	return s.queryReports(ctx, s.sb.Select(reportColumns...).From("reports").
		Where(sq.Eq{"reported_by": userID}).
		OrderBy("created_at DESC"))
}

// UpdateReport records the review decision on a pending report. It returns
// ErrNotPending when the stored report was already reviewed.
func (s *Store) UpdateReport(ctx context.Context, report *model.Report) error {
	return s.updateReport(ctx, s.db, report)
}

// ApproveReport creates item and links it to report in one transaction. The
// report must still be pending when the transaction runs; otherwise the item
// is rolled back and ErrNotPending is returned.
func (s *Store) ApproveReport(ctx context.Context, report *model.Report, item *model.CulturalItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := s.insertItem(ctx, tx, item); err != nil {
		return err
	}
	report.Status = model.ReportApproved
	report.CreatedItemID = item.ID
	if err := s.updateReport(ctx, tx, report); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing approval: %w", err)
	}
	return nil
}

func (s *Store) updateReport(ctx context.Context, ex execer, report *model.Report) error {
	report.UpdatedAt = s.now()
	query, args, err := s.sb.Update("reports").
		Set("status", string(report.Status)).
		Set("reviewed_by", report.ReviewedBy).
		Set("reviewed_at", nullTime(report)).
		Set("admin_notes", report.AdminNotes).
		Set("created_item_id", report.CreatedItemID).
		Set("updated_at", formatTime(report.UpdatedAt)).
		Where(sq.Eq{"id": report.ID, "status": string(model.ReportPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building report update: %w", err)
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating report: %w", err)
	}
	if n == 0 {
		return s.missingReport(ctx, ex, report.ID)
	}
	return nil
}

// missingReport explains why an update matched no row
func (s *Store) missingReport(ctx context.Context, ex execer, id string) error {
	query, args, err := s.sb.Select("status").From("reports").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building report lookup: %w", err)
	}
	var status string
	err = ex.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up report %s: %w", id, err)
	}
	return fmt.Errorf("report %s is %s: %w", id, status, ErrNotPending)
}

func (s *Store) queryReports(ctx context.Context, q sq.SelectBuilder) ([]*model.Report, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building report query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

func scanReport(rows *sql.Rows) (*model.Report, error) {
	var (
		r          model.Report
		reportType string
		category   string
		status     string
		reviewedAt sql.NullString
		created    string
		updated    string
	)
	if err := rows.Scan(
		&r.ID, &r.ReportedBy, &reportType, &r.Reason, &r.Title, &category, &r.Description,
		&r.CulturalContext, &r.HistoricalPeriod, &r.Location, &r.Significance, &r.Confidence,
		&r.ImagePath, &status, &r.ReviewedBy, &reviewedAt, &r.AdminNotes, &r.CreatedItemID,
		&created, &updated,
	); err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	r.Type = model.ReportType(reportType)
	r.Category = model.Category(category)
	r.Status = model.ReportStatus(status)

	var err error
	if reviewedAt.Valid {
		t, err := parseTime(reviewedAt.String)
		if err != nil {
			return nil, err
		}
		r.ReviewedAt = &t
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullTime(r *model.Report) sql.NullString {
	if r.ReviewedAt == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*r.ReviewedAt), Valid: true}
}
