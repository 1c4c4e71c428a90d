package taskservice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/query"
	"github.com/starford/tusk/internal/storage"
)

var clock = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

// failingFS wraps a real provider and fails writes to chosen paths.
type failingFS struct {
	storage.Provider
	failWrite map[string]bool
}

func (f *failingFS) Write(path string, content []byte) error {
	if f.failWrite[path] {
		return fmt.Errorf("injected write failure for %s", path)
	}
	return f.Provider.Write(path, content)
}

func newTestService(t *testing.T) (*Service, *failingFS) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	ffs := &failingFS{Provider: fs, failWrite: map[string]bool{}}
	store := daystore.New(ffs, "UTC", daystore.WithClock(func() time.Time { return clock }))
	return NewService(store), ffs
}

func mustDate(t *testing.T, s string) dates.Date {
	t.Helper()
	d, err := dates.Parse(s)
	require.NoError(t, err)
	return d
}

func seed(t *testing.T, svc *Service, d dates.Date, texts ...string) []models.Task {
	t.Helper()
	var out []models.Task
	for _, txt := range texts {
		res, err := svc.Add(context.Background(), d, txt, AddOptions{})
		require.NoError(t, err)
		out = append(out, res.Task)
	}
	return out
}

func texts(day *models.DayFile) []string {
	out := make([]string, len(day.Tasks))
	for i, t := range day.Tasks {
		out[i] = t.Text
	}
	return out
}

func assertDense(t *testing.T, day *models.DayFile) {
	t.Helper()
	assert.NoError(t, day.CheckDense())
}

func TestAdd_ParsesMetadata(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")

	res, err := svc.Add(ctx, d, "Call Dave about invoices #work @15m !high >16:00", AddOptions{Notes: "#not-a-tag"})
	require.NoError(t, err)

	task := res.Task
	assert.Equal(t, "Call Dave about invoices", task.Text)
	assert.Equal(t, []string{"work"}, task.Tags)
	assert.Equal(t, int64(900), *task.Estimate)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.True(t, task.Due.Equal(time.Date(2025, 9, 1, 16, 0, 0, 0, time.UTC)))
	assert.Equal(t, "#not-a-tag", task.Notes)
	assert.Equal(t, 1, task.Index)
	assert.True(t, task.CreatedAt.Equal(clock))

	day, err := svc.Day(ctx, d)
	require.NoError(t, err)
	require.Len(t, day.Tasks, 1)
	assert.Equal(t, task.ID, day.Tasks[0].ID)
}

func TestAdd_PriorityPrecedence(t *testing.T) {
	fs, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	svc := NewService(daystore.New(fs, "UTC"), WithDefaultPriority(models.PriorityLow))
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")

	res, _ := svc.Add(ctx, d, "plain", AddOptions{})
	assert.Equal(t, models.PriorityLow, res.Task.Priority)

	res, _ = svc.Add(ctx, d, "tok !med", AddOptions{})
	assert.Equal(t, models.PriorityMed, res.Task.Priority)

	high := models.PriorityHigh
	res, _ = svc.Add(ctx, d, "flag wins !low", AddOptions{Priority: &high})
	assert.Equal(t, models.PriorityHigh, res.Task.Priority)
}

func TestAdd_EmptyTextRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Add(context.Background(), mustDate(t, "2025-09-01"), "  #tag !high ", AddOptions{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	days, err := svc.Store().Dates()
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestAdd_WarningsAreAdvisory(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Add(context.Background(), mustDate(t, "2025-09-01"), "write @soon", AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, "write @soon", res.Task.Text)
	require.Len(t, res.Warnings, 1)
	assert.True(t, errors.Is(res.Warnings[0], apperr.ErrParseWarning))
}

func TestSetDone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	tasks := seed(t, svc, d, "a", "b", "c")

	out, err := svc.SetDone(ctx, d, []models.Selector{models.ByIndex(1), models.ByID(tasks[2].ID)}, MarkDone)
	require.NoError(t, err)
	require.Len(t, out, 2)

	day, _ := svc.Day(ctx, d)
	assert.True(t, day.Tasks[0].Done())
	assert.False(t, day.Tasks[1].Done())
	assert.True(t, day.Tasks[2].Done())
	assertDense(t, day)

	_, err = svc.SetDone(ctx, d, []models.Selector{models.ByIndex(1), models.ByIndex(2)}, Toggle)
	require.NoError(t, err)
	day, _ = svc.Day(ctx, d)
	assert.False(t, day.Tasks[0].Done())
	assert.True(t, day.Tasks[1].Done())

	_, err = svc.SetDone(ctx, d, []models.Selector{models.ByIndex(2)}, MarkUndone)
	require.NoError(t, err)
	day, _ = svc.Day(ctx, d)
	assert.False(t, day.Tasks[1].Done())
}

func TestSetDone_DuplicateSelectorsToggleOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	tasks := seed(t, svc, d, "a")

	_, err := svc.SetDone(ctx, d, []models.Selector{models.ByIndex(1), models.ByID(tasks[0].ID)}, Toggle)
	require.NoError(t, err)
	day, _ := svc.Day(ctx, d)
	assert.True(t, day.Tasks[0].Done())
}

func TestRemove_AllOrNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	seed(t, svc, d, "a", "b", "c")
	before, _ := svc.Day(ctx, d)

	_, err := svc.Remove(ctx, d, []models.Selector{models.ByIndex(2), models.ByID("bad-id")})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	after, _ := svc.Day(ctx, d)
	assert.Equal(t, before, after)
}

func TestRemove_RenumbersDensely(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	tasks := seed(t, svc, d, "a", "b", "c", "d", "e")

	removed, err := svc.Remove(ctx, d, []models.Selector{models.ByIndex(4), models.ByID(tasks[1].ID), models.ByIndex(2)})
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	day, _ := svc.Day(ctx, d)
	assert.Equal(t, []string{"a", "c", "e"}, texts(day))
	assertDense(t, day)
}

func TestEdit_MergesAttributes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	seed(t, svc, d, "draft report #work @1h !low >17:00")

	newText := "final report !high"
	res, err := svc.Edit(ctx, d, models.ByIndex(1), EditOptions{Text: &newText})
	require.NoError(t, err)

	task := res.Task
	assert.Equal(t, "final report", task.Text)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, []string{"work"}, task.Tags, "tags absent from edit text are kept")
	assert.Equal(t, int64(3600), *task.Estimate)
	assert.Equal(t, 17, task.Due.Hour())

	onlyTags := "#home #errand"
	res, err = svc.Edit(ctx, d, models.ByIndex(1), EditOptions{Text: &onlyTags})
	require.NoError(t, err)
	assert.Equal(t, "final report", res.Task.Text, "token-only edit keeps the text")
	assert.Equal(t, []string{"home", "errand"}, res.Task.Tags)
}

func TestEdit_ExplicitFlagsAlwaysAssign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	seed(t, svc, d, "task !high")

	empty := ""
	none := models.PriorityNone
	txt := "task !low"
	res, err := svc.Edit(ctx, d, models.ByIndex(1), EditOptions{Text: &txt, Notes: &empty, Priority: &none})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityNone, res.Task.Priority)
	assert.Equal(t, "", res.Task.Notes)
}

func TestEdit_NothingToEdit(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Edit(context.Background(), mustDate(t, "2025-09-01"), models.ByIndex(1), EditOptions{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestEdit_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	txt := "x"
	_, err := svc.Edit(context.Background(), mustDate(t, "2025-09-01"), models.ByIndex(1), EditOptions{Text: &txt})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func intPtr(n int) *int { return &n }

func TestMove(t *testing.T) {
	cases := []struct {
		name   string
		sel    models.Selector
		target MoveTarget
		want   []string
	}{
		{"before", models.ByIndex(4), MoveTarget{Before: models.ByIndex(2)}, []string{"1", "4", "2", "3"}},
		{"after", models.ByIndex(1), MoveTarget{After: models.ByIndex(3)}, []string{"2", "3", "1", "4"}},
		{"after last", models.ByIndex(2), MoveTarget{After: models.ByIndex(4)}, []string{"1", "3", "4", "2"}},
		{"index", models.ByIndex(1), MoveTarget{Index: intPtr(3)}, []string{"2", "3", "1", "4"}},
		{"index clamps high", models.ByIndex(1), MoveTarget{Index: intPtr(99)}, []string{"2", "3", "4", "1"}},
		{"index clamps low", models.ByIndex(3), MoveTarget{Index: intPtr(-5)}, []string{"3", "1", "2", "4"}},
		{"up", models.ByIndex(3), MoveTarget{Up: true}, []string{"1", "3", "2", "4"}},
		{"up at top", models.ByIndex(1), MoveTarget{Up: true}, []string{"1", "2", "3", "4"}},
		{"down", models.ByIndex(2), MoveTarget{Down: true}, []string{"1", "3", "2", "4"}},
		{"down at bottom", models.ByIndex(4), MoveTarget{Down: true}, []string{"1", "2", "3", "4"}},
		{"before self", models.ByIndex(2), MoveTarget{Before: models.ByIndex(2)}, []string{"1", "2", "3", "4"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()
			d := mustDate(t, "2025-09-01")
			orig := seed(t, svc, d, "1", "2", "3", "4")

			_, err := svc.Move(ctx, d, c.sel, c.target)
			require.NoError(t, err)

			day, _ := svc.Day(ctx, d)
			assert.Equal(t, c.want, texts(day))
			assertDense(t, day)

			byText := map[string]string{}
			for _, o := range orig {
				byText[o.Text] = o.ID
			}
			for _, task := range day.Tasks {
				assert.Equal(t, byText[task.Text], task.ID, "identity follows the record")
			}
		})
	}
}

func TestMove_TargetValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	seed(t, svc, d, "1", "2")

	_, err := svc.Move(ctx, d, models.ByIndex(1), MoveTarget{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = svc.Move(ctx, d, models.ByIndex(1), MoveTarget{Up: true, Index: intPtr(2)})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = svc.Move(ctx, d, models.ByIndex(1), MoveTarget{Before: models.ByID("ghost")})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestList_RangeAndFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d1 := mustDate(t, "2025-09-01")
	d2 := mustDate(t, "2025-09-02")
	seed(t, svc, d1, "a #x", "b")
	seed(t, svc, d2, "c #x")

	r, _ := dates.NewRange(d1, d2)
	res, err := svc.List(ctx, r, query.Options{Filter: query.Filter{Tags: []string{"x"}}})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, d1, res.Entries[0].Date)
	assert.Equal(t, d2, res.Entries[1].Date)

	_, err = svc.List(ctx, r, query.Options{Filter: query.Filter{Open: true, Done: true}})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	seed(t, svc, d, "a #x @30m >08:00", "b #x @1h")
	_, err := svc.SetDone(ctx, d, []models.Selector{models.ByIndex(2)}, MarkDone)
	require.NoError(t, err)

	stats, err := svc.Review(ctx, dates.Single(d))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Done)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, int64(5400), stats.TotalEstimate)
	assert.Equal(t, []query.TagCount{{Tag: "x", Count: 2}}, stats.Tags)
}

func TestIDsUniqueAcrossDays(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		d := mustDate(t, "2025-09-01").AddDays(i)
		for _, task := range seed(t, svc, d, "a", "b", "c") {
			assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
			seen[task.ID] = true
		}
		_, err := svc.Remove(ctx, d, []models.Selector{models.ByIndex(1)})
		require.NoError(t, err)
		res, err := svc.Add(ctx, d, "again", AddOptions{})
		require.NoError(t, err)
		assert.False(t, seen[res.Task.ID])
		seen[res.Task.ID] = true
	}
}
