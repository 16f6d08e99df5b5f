package service

import (
	"context"
	"errors"
	"testing"

	"societyhub/internal/model"
	"societyhub/internal/query"
	"societyhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPaymentService(env *testEnv) *PaymentService {
	return NewPaymentService(env.db, nil, env.cfg, env.store, env.notifier)
}

func TestPaymentService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newPaymentService(env)
	resident := seedAccount(t, env.db, "alice", 2, 0)

	_, err := svc.Submit(context.Background(), resident.ID, SubmitPaymentInput{Amount: 0, Category: "maintenance"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(context.Background(), resident.ID, SubmitPaymentInput{Amount: 100, Category: "other"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "otherCategoryType", verr.Fields[0].Field)

	_, err = svc.Submit(context.Background(), resident.ID, SubmitPaymentInput{Amount: 100, Category: "rent"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestPaymentService_SubmitNotifiesAdmins(t *testing.T) {
	env := newTestEnv(t)
	svc := newPaymentService(env)
	seedAccount(t, env.db, "boss", 3, 0, func(a *model.Account) { a.IsAdmin = true })
	resident := seedAccount(t, env.db, "alice", 2, 0)

	p, err := svc.Submit(context.Background(), resident.ID, SubmitPaymentInput{
		Amount:      500,
		Category:    "Maintenance",
		Description: "march",
		File:        upload("receipt.PNG", "png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Equal(t, model.PaymentCategoryMaintenance, p.Category)
	assert.Regexp(t, `^PMT\d{22}$`, p.PaymentNo)
	assert.Regexp(t, `^payments/.+\.png$`, p.FileRef)

	notes := outboxNotifications(t, env.db)
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"treasurer@example.com", "boss@example.com"}, notes[0].To)
	assert.Contains(t, notes[0].Body, p.PaymentNo)

	d, err := svc.OpenFile(context.Background(), Principal{AccountID: resident.ID}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", readDownload(t, d))
}

func TestPaymentService_ApproveSideEffects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPaymentService(env)
	resident := seedAccount(t, env.db, "alice", 2, 2000)

	p, err := svc.Submit(ctx, resident.ID, SubmitPaymentInput{Amount: 500, Category: "maintenance"})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	assert.Empty(t, approved.Account.PasswordHash)

	assert.Equal(t, int64(1500), reloadAccount(t, env.db, resident.ID).Dues)

	total, err := repository.NewCollectionRepository(env.db).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), total.TotalAmount)

	var earnings []model.Earning
	require.NoError(t, env.db.Where("payment_id = ?", p.ID).Find(&earnings).Error)
	require.Len(t, earnings, 1)
	assert.Equal(t, "alice", earnings[0].Name)
	assert.Equal(t, "maintenance", earnings[0].Category)
	assert.Equal(t, int64(500), earnings[0].Amount)

	notes := outboxNotifications(t, env.db)
	require.Len(t, notes, 2)
	assert.Equal(t, []string{"alice@example.com"}, notes[1].To)

	_, err = svc.Approve(ctx, p.ID)
	require.ErrorIs(t, err, ErrConflict)
	_, err = svc.Reject(ctx, p.ID)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1500), reloadAccount(t, env.db, resident.ID).Dues)
}

func TestPaymentService_ApproveOtherCategory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPaymentService(env)
	resident := seedAccount(t, env.db, "alice", 2, 0)

	p, err := svc.Submit(ctx, resident.ID, SubmitPaymentInput{Amount: 250, Category: "other", OtherCategoryType: "parking"})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(-250), reloadAccount(t, env.db, resident.ID).Dues)
	_, err = repository.NewCollectionRepository(env.db).Get(ctx)
	assert.ErrorIs(t, err, repository.ErrTotalNotFound)

	var earning model.Earning
	require.NoError(t, env.db.Where("payment_id = ?", p.ID).First(&earning).Error)
	assert.Equal(t, "parking", earning.Category)
}

func TestPaymentService_ApproveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPaymentService(env)
	resident := seedAccount(t, env.db, "alice", 2, 2000)

	p, err := svc.Submit(ctx, resident.ID, SubmitPaymentInput{Amount: 500, Category: "maintenance"})
	require.NoError(t, err)

	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_earning", func(tx *gorm.DB) {
		if tx.Statement.Table == "earnings" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err = svc.Approve(ctx, p.ID)
	require.ErrorIs(t, err, ErrInconsistentState)

	stored, err := repository.NewPaymentRepository(env.db).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, stored.Status)
	assert.Equal(t, int64(2000), reloadAccount(t, env.db, resident.ID).Dues)
	_, err = repository.NewCollectionRepository(env.db).Get(ctx)
	assert.ErrorIs(t, err, repository.ErrTotalNotFound)
	assert.Len(t, outboxNotifications(t, env.db), 1)
}

func TestPaymentService_RejectAndAccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPaymentService(env)
	alice := seedAccount(t, env.db, "alice", 2, 700)
	bob := seedAccount(t, env.db, "bob", 3, 1000)

	p, err := svc.Submit(ctx, alice.ID, SubmitPaymentInput{Amount: 700, Category: "fund"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, Principal{AccountID: bob.ID}, p.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, Principal{AccountID: bob.ID, IsAdmin: true}, p.ID)
	require.NoError(t, err)
	_, err = svc.OpenFile(ctx, Principal{AccountID: alice.ID}, p.ID)
	require.ErrorIs(t, err, ErrNotFound)

	pending, err := svc.ListPending(ctx, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Count)

	rejected, err := svc.Reject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRejected, rejected.Status)
	assert.Equal(t, int64(700), reloadAccount(t, env.db, alice.ID).Dues)

	pending, err = svc.ListPending(ctx, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, pending.Count)

	own, err := svc.ListOwn(ctx, bob.ID, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, own.Count)
	own, err = svc.ListOwn(ctx, alice.ID, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, own.Count)

	_, err = svc.Approve(ctx, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentService_DeleteRemovesBlob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPaymentService(env)
	alice := seedAccount(t, env.db, "alice", 2, 0)

	p, err := svc.Submit(ctx, alice.ID, SubmitPaymentInput{Amount: 100, Category: "fund", File: upload("r.jpg", "x")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = env.store.Open(ctx, p.FileRef)
	assert.Error(t, err)
	require.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}

func TestPaymentService_DeleteApprovedKeepsEarningFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newPaymentService(env)
	ledger := NewLedgerService(env.db, env.store)
	alice := seedAccount(t, env.db, "alice", 2, 1000)

	p, err := svc.Submit(ctx, alice.ID, SubmitPaymentInput{Amount: 300, Category: "maintenance", File: upload("r.jpg", "receipt")})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, p.ID)
	require.NoError(t, err)

	var earning model.Earning
	require.NoError(t, env.db.Where("payment_id = ?", p.ID).First(&earning).Error)

	require.NoError(t, svc.Delete(ctx, p.ID))

	kept, err := ledger.GetEarning(ctx, earning.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.PaymentID)
	assert.Equal(t, p.FileRef, kept.FileRef)

	d, err := ledger.OpenEarningFile(ctx, earning.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt", readDownload(t, d))

	// 文件已转归收入记录，删除收入时一并清理
	require.NoError(t, ledger.DeleteEarning(ctx, earning.ID))
	_, err = env.store.Open(ctx, p.FileRef)
	assert.Error(t, err)
}
