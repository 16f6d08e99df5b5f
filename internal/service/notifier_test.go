package service

import (
	"context"
	"testing"

	"societyhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_AdminContacts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.cfg.Business.AdminEmails = []string{"Treasurer@example.com", " ", "secretary@example.com"}
	seedAccount(t, env.db, "treasurer", 2, 0, func(a *model.Account) { a.IsAdmin = true })
	seedAccount(t, env.db, "retired", 3, 0, func(a *model.Account) {
		a.IsAdmin = true
		a.Status = model.AccountStatusInactive
	})
	seedAccount(t, env.db, "resident", 2, 0)

	admins, err := env.notifier.AdminContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Treasurer@example.com", "secretary@example.com"}, admins)

	residents, err := env.notifier.ResidentContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"treasurer@example.com", "resident@example.com"}, residents)
}

func TestNotifier_EnqueueSkipsEmptyRecipients(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.notifier.Enqueue(ctx, nil, "k1", nil, "subject", "body"))
	assert.Empty(t, outboxNotifications(t, env.db))

	require.NoError(t, env.notifier.Enqueue(ctx, nil, "k2", []string{"a@example.com"}, "subject", "body"))
	var msgs []model.OutboxMessage
	require.NoError(t, env.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, "society.notification", msgs[0].Topic)
	assert.Equal(t, model.OutboxStatusPending, msgs[0].Status)
	assert.JSONEq(t, `{"to":["a@example.com"],"subject":"subject","body":"body"}`, msgs[0].Payload)
}
