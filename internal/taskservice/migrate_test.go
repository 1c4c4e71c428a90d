package taskservice

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/models"
)

func TestMigrate_MovesOpenTasks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	from := mustDate(t, "2025-09-01")
	to := mustDate(t, "2025-09-02")

	orig := seed(t, svc, from, "done already", "open one #a @30m", "open two !high")
	_, err := svc.SetDone(ctx, from, []models.Selector{models.ByIndex(1)}, MarkDone)
	require.NoError(t, err)
	seed(t, svc, to, "existing")

	res, err := svc.Migrate(ctx, from, to, false)
	require.NoError(t, err)
	require.Len(t, res.Selected, 2)
	require.Len(t, res.Created, 2)

	src, _ := svc.Day(ctx, from)
	require.Len(t, src.Tasks, 1)
	assert.Equal(t, "done already", src.Tasks[0].Text)
	assert.Equal(t, 1, src.Tasks[0].Index)
	assert.True(t, src.Tasks[0].Done())

	dst, _ := svc.Day(ctx, to)
	assert.Equal(t, []string{"existing", "open one", "open two"}, texts(dst))
	assertDense(t, dst)

	for i, created := range dst.Tasks[1:] {
		assert.NotEqual(t, orig[i+1].ID, created.ID, "migrated copies get fresh ids")
		require.NotNil(t, created.MigratedFrom)
		assert.Equal(t, from, *created.MigratedFrom)
		assert.False(t, created.Done())
	}
	assert.Equal(t, []string{"a"}, dst.Tasks[1].Tags)
	assert.Equal(t, int64(1800), *dst.Tasks[1].Estimate)
	assert.Equal(t, models.PriorityHigh, dst.Tasks[2].Priority)
}

func TestMigrate_DryRunWritesNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	from := mustDate(t, "2025-09-01")
	to := mustDate(t, "2025-09-02")
	seed(t, svc, from, "a", "b")

	res, err := svc.Migrate(ctx, from, to, true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Selected, 2)
	assert.Empty(t, res.Created)

	exists, err := svc.Store().Exists(to)
	require.NoError(t, err)
	assert.False(t, exists)

	src, _ := svc.Day(ctx, from)
	assert.Len(t, src.Tasks, 2)
}

func TestMigrate_SameDateIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustDate(t, "2025-09-01")
	seed(t, svc, d, "a")

	res, err := svc.Migrate(ctx, d, d, false)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)

	day, _ := svc.Day(ctx, d)
	assert.Len(t, day.Tasks, 1)
}

func TestMigrate_NothingOpen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	from := mustDate(t, "2025-09-01")
	to := mustDate(t, "2025-09-02")

	res, err := svc.Migrate(ctx, from, to, false)
	require.NoError(t, err)
	assert.Empty(t, res.Created)

	exists, _ := svc.Store().Exists(to)
	assert.False(t, exists)
}

func TestMigrate_DestinationFailureLeavesBothDays(t *testing.T) {
	svc, ffs := newTestService(t)
	ctx := context.Background()
	from := mustDate(t, "2025-09-01")
	to := mustDate(t, "2025-09-02")
	seed(t, svc, from, "a", "b")
	seed(t, svc, to, "x")

	srcBefore, err := ffs.Read(daystore.PathFor(from))
	require.NoError(t, err)
	dstBefore, err := ffs.Read(daystore.PathFor(to))
	require.NoError(t, err)

	ffs.failWrite[daystore.PathFor(to)] = true
	_, err = svc.Migrate(ctx, from, to, false)
	assert.True(t, errors.Is(err, apperr.ErrStoreFailure))

	srcAfter, _ := ffs.Read(daystore.PathFor(from))
	dstAfter, _ := ffs.Read(daystore.PathFor(to))
	assert.Equal(t, srcBefore, srcAfter)
	assert.Equal(t, dstBefore, dstAfter)
}

func TestMigrate_SourceFailureRollsBackDestination(t *testing.T) {
	svc, ffs := newTestService(t)
	ctx := context.Background()
	from := mustDate(t, "2025-09-01")
	to := mustDate(t, "2025-09-02")
	seed(t, svc, from, "a")

	srcBefore, err := ffs.Read(daystore.PathFor(from))
	require.NoError(t, err)

	ffs.failWrite[daystore.PathFor(from)] = true
	_, err = svc.Migrate(ctx, from, to, false)
	assert.True(t, errors.Is(err, apperr.ErrStoreFailure))

	_, err = ffs.Read(daystore.PathFor(to))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "destination created by the migration is removed again")

	srcAfter, _ := ffs.Read(daystore.PathFor(from))
	assert.Equal(t, srcBefore, srcAfter)
}

func TestMigrate_SourceFailureRestoresExistingDestination(t *testing.T) {
	svc, ffs := newTestService(t)
	ctx := context.Background()
	from := mustDate(t, "2025-09-01")
	to := mustDate(t, "2025-09-02")
	seed(t, svc, from, "a")
	seed(t, svc, to, "x")

	dstBefore, err := ffs.Read(daystore.PathFor(to))
	require.NoError(t, err)

	ffs.failWrite[daystore.PathFor(from)] = true
	_, err = svc.Migrate(ctx, from, to, false)
	require.Error(t, err)

	dstAfter, _ := ffs.Read(daystore.PathFor(to))
	assert.Equal(t, dstBefore, dstAfter)
}
