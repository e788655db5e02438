package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "cultura.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing clock so ordering is stable
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cultura.db")
	s, err := Open(path)
	require.NoError(t, err)
	item := &model.CulturalItem{Title: "Pachamanca", Category: model.CategoryGastronomy}
	require.NoError(t, s.CreateItem(context.Background(), item))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pachamanca", got.Title)
}

func TestCreateItem_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := &model.CulturalItem{
		Title:            "Kotosh",
		Category:         model.CategoryArchaeologicalHeritage,
		Confidence:       0.92,
		Description:      "Templo de las Manos Cruzadas",
		CulturalContext:  "Tradición Mito",
		HistoricalPeriod: "Precerámico",
		Location:         "Huánuco",
		Significance:     "Uno de los templos más antiguos de América",
		ImagePath:        "items/kotosh.jpg",
		CreatedBy:        "u1",
		Validated:        true,
		ValidatedBy:      "admin",
	}
	require.NoError(t, s.CreateItem(ctx, item))
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Patrimonio Arqueológico", item.CategoryLabel)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(item, got); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.Error(t, s.CreateItem(ctx, &model.CulturalItem{Title: "  "}))

	item := &model.CulturalItem{Title: "Algo", Category: "NOPE"}
	require.NoError(t, s.CreateItem(ctx, item))
	assert.Equal(t, model.CategoryOther, item.Category)
}

func TestGetItem_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetItem(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, item := range []*model.CulturalItem{
		{Title: "Pachamanca", Category: model.CategoryGastronomy, CreatedBy: "u1"},
		{Title: "Negritos", Category: model.CategoryDance, CreatedBy: "u2"},
		{Title: "Picante de cuy", Category: model.CategoryGastronomy, CreatedBy: "u1"},
	} {
		require.NoError(t, s.CreateItem(ctx, item))
	}

	all, err := s.ListItems(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Picante de cuy", "Negritos", "Pachamanca"}, titles(all))

	food, err := s.ListItems(ctx, model.CategoryGastronomy)
	require.NoError(t, err)
	assert.Equal(t, []string{"Picante de cuy", "Pachamanca"}, titles(food))

	mine, err := s.ListItemsByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Negritos"}, titles(mine))

	none, err := s.ListItemsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReports_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := &model.Report{
		ReportedBy: "u1",
		Type:       model.ReportCorrection,
		Reason:     "No es Kotosh",
		Title:      "Huánuco Pampa",
		Category:   model.CategoryArchaeologicalHeritage,
		Confidence: 0.85,
		Status:     model.ReportApproved, // ignored on create
	}
	require.NoError(t, s.CreateReport(ctx, report))
	assert.Equal(t, model.ReportPending, report.Status)

	got, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(report, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	reviewed := time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
	got.Status = model.ReportRejected
	got.ReviewedBy = "admin"
	got.ReviewedAt = &reviewed
	got.AdminNotes = "duplicado"
	require.NoError(t, s.UpdateReport(ctx, got))

	again, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportRejected, again.Status)
	assert.Equal(t, "admin", again.ReviewedBy)
	require.NotNil(t, again.ReviewedAt)
	assert.True(t, reviewed.Equal(*again.ReviewedAt))
	assert.Equal(t, "duplicado", again.AdminNotes)
}

func TestCreateReport_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.CreateReport(ctx, &model.Report{ReportedBy: "u1"}))
	assert.Error(t, s.CreateReport(ctx, &model.Report{Title: "x"}))

	r := &model.Report{ReportedBy: "u1", Title: "x"}
	require.NoError(t, s.CreateReport(ctx, r))
	assert.Equal(t, model.ReportNewElement, r.Type)
	assert.Equal(t, model.CategoryOther, r.Category)
}

func TestUpdateReport_NotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateReport(context.Background(), &model.Report{ID: "missing", Status: model.ReportRejected})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListReports(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &model.Report{ReportedBy: "u1", Title: "A"}
	b := &model.Report{ReportedBy: "u2", Title: "B"}
	c := &model.Report{ReportedBy: "u1", Title: "C"}
	for _, r := range []*model.Report{a, b, c} {
		require.NoError(t, s.CreateReport(ctx, r))
	}
	b.Status = model.ReportRejected
	require.NoError(t, s.UpdateReport(ctx, b))

	pending, err := s.ListReports(ctx, model.ReportPending)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, reportTitles(pending))

	all, err := s.ListReports(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.ListReportsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, reportTitles(mine))
}

func TestApproveReport_LinksItem(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := &model.Report{ReportedBy: "u1", Title: "Shapish", Category: model.CategoryDance}
	require.NoError(t, s.CreateReport(ctx, report))

	item := &model.CulturalItem{Title: report.Title, Category: report.Category, CreatedBy: "u1", Validated: true}
	require.NoError(t, s.ApproveReport(ctx, report, item))

	got, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportApproved, got.Status)
	assert.Equal(t, item.ID, got.CreatedItemID)

	created, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, created.Validated)
}

func TestApproveReport_RollsBackOnMissingReport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := &model.CulturalItem{Title: "Huérfano"}
	err := s.ApproveReport(ctx, &model.Report{ID: "missing"}, item)
	require.True(t, errors.Is(err, ErrNotFound))

	items, err := s.ListItems(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSaveAnalysisLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &model.AnalysisLog{ImageHash: "abc", RawResponse: `{"titulo":"x"}`, ProcessingSeconds: 1.5, TokensUsed: 420}
	second := &model.AnalysisLog{ImageHash: "abc", ItemID: "item-1"}
	require.NoError(t, s.SaveAnalysisLog(ctx, first))
	require.NoError(t, s.SaveAnalysisLog(ctx, second))
	require.NoError(t, s.SaveAnalysisLog(ctx, &model.AnalysisLog{ImageHash: "other"}))
	assert.Greater(t, second.ID, first.ID)

	logs, err := s.AnalysisLogs(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	if diff := cmp.Diff(first, logs[0]); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "item-1", logs[1].ItemID)
}

func TestMedia_Save(t *testing.T) {
	dir := t.TempDir()
	m := NewMedia(dir)
	p, err := imagedata.Parse("data:image/png;base64," + imagedata.Encode([]byte("\x89PNG\r\n\x1a\nfake")))
	require.NoError(t, err)

	rel, err := m.Save("reports", p)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(rel))
	assert.Equal(t, "reports", filepath.Dir(filepath.FromSlash(rel)))

	data, err := os.ReadFile(m.Path(rel))
	require.NoError(t, err)
	assert.Equal(t, p.Data, data)
}

func titles(items []*model.CulturalItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func reportTitles(reports []*model.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Title)
	}
	return out
}

func TestApproveReport_OnlyOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := &model.Report{ReportedBy: "u1", Title: "Shapish", Category: model.CategoryDance}
	require.NoError(t, s.CreateReport(ctx, report))
	stale := *report

	require.NoError(t, s.ApproveReport(ctx, report, &model.CulturalItem{Title: "Shapish"}))
	err := s.ApproveReport(ctx, &stale, &model.CulturalItem{Title: "Shapish"})
	require.True(t, errors.Is(err, ErrNotPending))

	items, err := s.ListItems(ctx, "")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUpdateReport_NotPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := &model.Report{ReportedBy: "u1", Title: "Shapish"}
	require.NoError(t, s.CreateReport(ctx, report))
	report.Status = model.ReportRejected
	require.NoError(t, s.UpdateReport(ctx, report))

	report.AdminNotes = "otra vez"
	err := s.UpdateReport(ctx, report)
	assert.True(t, errors.Is(err, ErrNotPending))

	got, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AdminNotes)
}
