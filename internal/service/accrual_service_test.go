package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"societyhub/internal/model"
	"societyhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAccrualService_RunOncePerMonth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewAccrualService(env.db, nil, env.cfg)
	svc.now = fixedClock(time.Date(2024, 3, 1, 0, 0, 5, 0, time.UTC))

	two := seedAccount(t, env.db, "two", 2, 0)
	three := seedAccount(t, env.db, "three", 3, 100)
	inactive := seedAccount(t, env.db, "gone", 2, 50, func(a *model.Account) { a.Status = model.AccountStatusInactive })
	legacy := seedAccount(t, env.db, "legacy", 4, 0)

	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "2024-03", result.Month)
	assert.Equal(t, map[int]int64{2: 1, 3: 1}, result.Updated)
	require.Len(t, result.Flagged, 1)
	assert.Equal(t, legacy.ID, result.Flagged[0].ID)

	assert.Equal(t, int64(700), reloadAccount(t, env.db, two.ID).Dues)
	assert.Equal(t, int64(1100), reloadAccount(t, env.db, three.ID).Dues)
	assert.Equal(t, int64(50), reloadAccount(t, env.db, inactive.ID).Dues)
	assert.Equal(t, int64(0), reloadAccount(t, env.db, legacy.ID).Dues)

	// 同月再次执行
	svc.now = fixedClock(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC))
	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, int64(700), reloadAccount(t, env.db, two.ID).Dues)

	// 下个月
	svc.now = fixedClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, int64(1400), reloadAccount(t, env.db, two.ID).Dues)
	assert.Equal(t, int64(2100), reloadAccount(t, env.db, three.ID).Dues)

	jobLog, err := repository.NewJobLogRepository(env.db).Get(ctx, model.JobNameAccumulateDues)
	require.NoError(t, err)
	require.NotNil(t, jobLog.LastRun)
	assert.Equal(t, time.April, jobLog.LastRun.UTC().Month())
}

func TestAccrualService_SameMonthNextYearRuns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewAccrualService(env.db, nil, env.cfg)
	acct := seedAccount(t, env.db, "two", 2, 0)

	svc.now = fixedClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.Run(ctx)
	require.NoError(t, err)

	svc.now = fixedClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, int64(1400), reloadAccount(t, env.db, acct.ID).Dues)
}

func TestAccrualService_BusinessTimezone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.cfg.Business.Timezone = "Asia/Kolkata"
	svc := NewAccrualService(env.db, nil, env.cfg)
	acct := seedAccount(t, env.db, "two", 2, 0)

	// 2024-02-29 19:00 UTC 已是当地 3 月 1 日
	svc.now = fixedClock(time.Date(2024, 2, 29, 19, 0, 0, 0, time.UTC))
	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", result.Month)

	svc.now = fixedClock(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, int64(700), reloadAccount(t, env.db, acct.ID).Dues)
}

func TestAccrualService_FailureRollsBackAndRetryAppliesOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewAccrualService(env.db, nil, env.cfg)
	svc.now = fixedClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	two := seedAccount(t, env.db, "two", 2, 0)
	three := seedAccount(t, env.db, "three", 3, 0)

	// 写执行记录时失败，两个户型的累加都已执行
	failMarkRun := true
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_mark_run", func(tx *gorm.DB) {
		if jl, ok := tx.Statement.Dest.(*model.JobLog); ok && failMarkRun && jl.LastRun != nil {
			_ = tx.AddError(errors.New("boom"))
		}
	}))

	_, err := svc.Run(ctx)
	require.ErrorIs(t, err, ErrInconsistentState)
	assert.Equal(t, int64(0), reloadAccount(t, env.db, two.ID).Dues)
	assert.Equal(t, int64(0), reloadAccount(t, env.db, three.ID).Dues)

	jobLog, err := repository.NewJobLogRepository(env.db).Get(ctx, model.JobNameAccumulateDues)
	require.NoError(t, err)
	assert.Nil(t, jobLog.LastRun)

	failMarkRun = false
	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, int64(700), reloadAccount(t, env.db, two.ID).Dues)
	assert.Equal(t, int64(1000), reloadAccount(t, env.db, three.ID).Dues)

	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, int64(700), reloadAccount(t, env.db, two.ID).Dues)
}
