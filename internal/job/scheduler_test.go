package job

import (
	"context"
	"testing"

	"societyhub/internal/config"
	"societyhub/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAccruer struct {
	runs int
}

func (a *countingAccruer) Run(ctx context.Context) (*service.AccrualResult, error) {
	a.runs++
	return &service.AccrualResult{Month: "2024-03"}, nil
}

func schedulerConfig(accrual, sweep string) *config.Config {
	return &config.Config{Business: config.BusinessConfig{
		AccrualSchedule:     accrual,
		ExpirySweepSchedule: sweep,
		Timezone:            "UTC",
	}}
}

func TestNewScheduler_RegistersJobs(t *testing.T) {
	accruer := &countingAccruer{}
	s, err := NewScheduler(schedulerConfig("0 0 1 * *", "@hourly"), accruer, NewAnnouncementExpiryJob(&fakePurger{}))
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s.runAccrual()
	s.runExpiry()
	assert.Equal(t, 1, accruer.runs)
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(schedulerConfig("every month", "@hourly"), &countingAccruer{}, NewAnnouncementExpiryJob(&fakePurger{}))
	require.Error(t, err)

	_, err = NewScheduler(schedulerConfig("0 0 1 * *", "61 * * * *"), &countingAccruer{}, NewAnnouncementExpiryJob(&fakePurger{}))
	require.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(schedulerConfig("0 0 1 * *", "@hourly"), &countingAccruer{}, NewAnnouncementExpiryJob(&fakePurger{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop()
}
