package review

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/store"
)

var (
	author = User{ID: "u1"}
	other  = User{ID: "u2"}
	admin  = User{ID: "admin", Admin: true}
)

type fixture struct {
	svc    *Service
	store  *store.Store
	corpus *knowledge.Loader
	media  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "cultura.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	corpus := knowledge.NewLoader(filepath.Join(dir, "elementos_huanuco.json"), nil)
	media := filepath.Join(dir, "media")
	svc := NewService(Deps{
		Repository: st,
		Corpus:     corpus,
		Images:     store.NewMedia(media),
	})
	return &fixture{svc: svc, store: st, corpus: corpus, media: media}
}

func shapish() ReportInput {
	return ReportInput{
		ElementInput: ElementInput{
			Title:            " Danza de los Shapish ",
			Category:         "danza",
			Description:      "Danza guerrera de la selva de Huánuco",
			CulturalContext:  "Fiesta de San Juan",
			HistoricalPeriod: "Colonial",
			Location:         "Panao",
			Significance:     "Resistencia indígena",
		},
		Reason: "Falta en el catálogo",
	}
}

func TestSubmit_StoresPendingReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)
	assert.Equal(t, model.ReportPending, report.Status)
	assert.Equal(t, model.ReportNewElement, report.Type)
	assert.Equal(t, "Danza de los Shapish", report.Title)
	assert.Equal(t, model.CategoryDance, report.Category)
	assert.Equal(t, model.DefaultReportConfidence, report.Confidence)
	assert.Empty(t, report.ImagePath)

	stored, err := f.store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.ReportedBy)
}

func TestSubmit_SavesImage(t *testing.T) {
	f := newFixture(t)
	input := shapish()
	input.Image = "data:image/png;base64," + imagedata.Encode([]byte("\x89PNG\r\n\x1a\nfake"))

	report, err := f.svc.Submit(context.Background(), author, input)
	require.NoError(t, err)
	require.NotEmpty(t, report.ImagePath)
	_, err = os.Stat(filepath.Join(f.media, filepath.FromSlash(report.ImagePath)))
	assert.NoError(t, err)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	bad := 1.5
	input := ReportInput{
		ElementInput: ElementInput{Confidence: &bad, Image: "%%%"},
		Type:         "OTHER",
	}

	_, err := f.svc.Submit(context.Background(), author, input)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "titulo")
	assert.Contains(t, verr.Fields, "categoria")
	assert.Contains(t, verr.Fields, "confianza")
	assert.Contains(t, verr.Fields, "imagen")
	assert.Contains(t, verr.Fields, "report_type")
	assert.Contains(t, verr.Error(), "titulo: required")
}

func TestSubmit_RequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), User{}, shapish())
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestGet_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, author, report.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, admin, report.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, other, report.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.svc.Get(ctx, admin, "missing")
	assert.True(t, IsNotFound(err))
}

func TestListAndMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)
	second := shapish()
	second.Title = "Negritos"
	_, err = f.svc.Submit(ctx, other, second)
	require.NoError(t, err)

	_, err = f.svc.List(ctx, author, "")
	assert.True(t, errors.Is(err, ErrForbidden))

	all, err := f.svc.List(ctx, admin, model.ReportPending)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.Mine(ctx, other)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Negritos", mine[0].Title)
}

func TestReview_Approve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)

	outcome, err := f.svc.Review(ctx, admin, report.ID, Decision{Action: ActionApprove, Notes: "ok"})
	require.NoError(t, err)
	assert.True(t, outcome.AddedToCorpus)
	require.NotNil(t, outcome.Item)
	assert.True(t, outcome.Item.Validated)
	assert.Equal(t, "admin", outcome.Item.ValidatedBy)
	assert.Equal(t, "u1", outcome.Item.CreatedBy)

	stored, err := f.store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportApproved, stored.Status)
	assert.Equal(t, outcome.Item.ID, stored.CreatedItemID)
	assert.Equal(t, "ok", stored.AdminNotes)
	assert.NotNil(t, stored.ReviewedAt)

	data, err := os.ReadFile(f.corpus.Path())
	require.NoError(t, err)
	var elements []model.VerifiedElement
	require.NoError(t, json.Unmarshal(data, &elements))
	require.Len(t, elements, 1)
	assert.Equal(t, "Danza de los Shapish", elements[0].Title)
	assert.Equal(t, "Danza", elements[0].Category)
	require.NotNil(t, elements[0].Confidence)
	assert.Equal(t, model.DefaultReportConfidence, *elements[0].Confidence)
}

func TestReview_ApproveDuplicateTitleSkipsCorpus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.corpus.Append(model.VerifiedElement{Title: "Danza de los Shapish", Category: "Danza"})
	require.NoError(t, err)

	report, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)
	outcome, err := f.svc.Review(ctx, admin, report.ID, Decision{Action: ActionApprove})
	require.NoError(t, err)
	assert.False(t, outcome.AddedToCorpus)
	assert.NotNil(t, outcome.Item)
}

func TestReview_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)

	outcome, err := f.svc.Review(ctx, admin, report.ID, Decision{Action: ActionReject, Notes: "sin fuentes"})
	require.NoError(t, err)
	assert.Nil(t, outcome.Item)
	assert.False(t, outcome.AddedToCorpus)
	assert.Equal(t, model.ReportRejected, outcome.Report.Status)

	items, err := f.store.ListItems(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = os.Stat(f.corpus.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestReview_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.Submit(ctx, author, shapish())
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, author, report.ID, Decision{Action: ActionApprove})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.svc.Review(ctx, admin, report.ID, Decision{Action: "maybe"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.svc.Review(ctx, admin, "missing", Decision{Action: ActionReject})
	assert.True(t, IsNotFound(err))

	_, err = f.svc.Review(ctx, admin, report.ID, Decision{Action: ActionReject})
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, admin, report.ID, Decision{Action: ActionApprove})
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conf := 0.9
	input := ElementInput{Title: "Pachamanca", Category: "Gastronomía", Confidence: &conf}

	item, err := f.svc.AddItem(ctx, author, input)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryGastronomy, item.Category)
	assert.False(t, item.Validated)
	assert.Equal(t, 0.9, item.Confidence)

	byAdmin, err := f.svc.AddItem(ctx, admin, input)
	require.NoError(t, err)
	assert.True(t, byAdmin.Validated)
	assert.Equal(t, "admin", byAdmin.ValidatedBy)

	_, err = f.svc.AddItem(ctx, User{}, input)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.svc.AddItem(ctx, author, ElementInput{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

// slowRepository widens the window between the pending check and the write
type slowRepository struct {
	*store.Store
	delay time.Duration
}

func (r slowRepository) ApproveReport(ctx context.Context, report *model.Report, item *model.CulturalItem) error {
	time.Sleep(r.delay)
	return r.Store.ApproveReport(ctx, report, item)
}

func (r slowRepository) UpdateReport(ctx context.Context, report *model.Report) error {
	time.Sleep(r.delay)
	return r.Store.UpdateReport(ctx, report)
}

func TestReview_ConcurrentDecisionsApplyOnce(t *testing.T) {
	for _, actions := range [][2]Action{
		{ActionApprove, ActionApprove},
		{ActionApprove, ActionReject},
		{ActionReject, ActionReject},
	} {
		t.Run(string(actions[0])+"_"+string(actions[1]), func(t *testing.T) {
			f := newFixture(t)
			svc := NewService(Deps{Repository: slowRepository{Store: f.store, delay: 50 * time.Millisecond}})
			ctx := context.Background()
			report, err := svc.Submit(ctx, author, shapish())
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make([]error, len(actions))
			for i, action := range actions {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = svc.Review(ctx, admin, report.ID, Decision{Action: action})
				}()
			}
			wg.Wait()

			var ok, conflicts int
			for _, err := range errs {
				switch {
				case err == nil:
					ok++
				case errors.Is(err, ErrAlreadyReviewed):
					conflicts++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, ok)
			assert.Equal(t, 1, conflicts)

			items, err := f.store.ListItems(ctx, "")
			require.NoError(t, err)
			assert.LessOrEqual(t, len(items), 1)
		})
	}
}
