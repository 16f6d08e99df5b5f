package repository

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"testing"
	"time"

	"societyhub/internal/infrastructure/database/dbtest"
	"societyhub/internal/model"
	"societyhub/internal/query"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAccount(t *testing.T, repo *AccountRepository, name string, houseType int, dues int64) *model.Account {
	t.Helper()
	a := &model.Account{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		MobileNumber: "9876543210",
		HouseNumber:  "H-" + name,
		HouseType:    houseType,
		Dues:         dues,
		Status:       model.AccountStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestAccountRepository_DuplicateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewAccountRepository(db)

	a := newAccount(t, repo, "asha", 2, 0)

	dup := *a
	dup.ID = 0
	dup.HouseNumber = "other"
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicateAccount)

	taken, err := repo.EmailTaken(ctx, "asha@example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(ctx, "asha@example.com", a.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.HouseTaken(ctx, 2, "H-asha", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.HouseTaken(ctx, 3, "H-asha", 0)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.True(t, IsNotFound(err))

	assert.ErrorIs(t, repo.Update(ctx, nil, 999, map[string]interface{}{"name": "x"}), ErrAccountNotFound)
}

func TestAccountRepository_DuesOperations(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewAccountRepository(db)

	a2 := newAccount(t, repo, "a2", 2, 100)
	a3 := newAccount(t, repo, "a3", 3, 0)
	inactive := newAccount(t, repo, "off", 2, 0)
	require.NoError(t, repo.Update(ctx, nil, inactive.ID, map[string]interface{}{"status": model.AccountStatusInactive}))

	n, err := repo.AccrueDues(ctx, db, 2, 700)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DecreaseDues(ctx, db, a3.ID, 1500))

	got, err := repo.GetByID(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), got.Dues)

	got, err = repo.GetByID(ctx, a3.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1500), got.Dues)

	got, err = repo.GetByID(ctx, inactive.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Dues)

	assert.ErrorIs(t, repo.DecreaseDues(ctx, db, 999, 1), ErrAccountNotFound)
}

func TestAccountRepository_ListActiveEmailsAndWithoutRate(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewAccountRepository(db)

	admin := newAccount(t, repo, "admin", 2, 0)
	require.NoError(t, repo.Update(ctx, nil, admin.ID, map[string]interface{}{"is_admin": true}))
	newAccount(t, repo, "resident", 3, 0)
	legacy := newAccount(t, repo, "legacy", 2, 0)
	require.NoError(t, db.Model(&model.Account{}).Where("id = ?", legacy.ID).UpdateColumn("house_type", 4).Error)

	emails, err := repo.ListActiveEmails(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@example.com"}, emails)

	emails, err = repo.ListActiveEmails(ctx, false)
	require.NoError(t, err)
	assert.Len(t, emails, 3)

	flagged, err := repo.ListActiveWithoutRate(ctx, nil, []int{2, 3})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, legacy.ID, flagged[0].ID)
}

func TestAccountRepository_ListNeverLeaksPassword(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewAccountRepository(db)
	newAccount(t, repo, "p1", 2, 0)
	newAccount(t, repo, "p2", 3, 0)

	page, err := repo.List(ctx, query.ParseParams(url.Values{"houseType": {"3"}}))
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Empty(t, page.Data[0].PasswordHash)

	detail, err := repo.GetByIDWithPayments(ctx, page.Data[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.Payments)
}

func TestPaymentRepository_StatusTransitionOnce(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	accounts := NewAccountRepository(db)
	repo := NewPaymentRepository(db)

	a := newAccount(t, accounts, "payer", 2, 0)
	p := &model.Payment{PaymentNo: "PMT1", AccountID: a.ID, Amount: 500, Category: model.PaymentCategoryMaintenance, Status: model.PaymentStatusPending, Date: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, nil, p))

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateStatus(ctx, nil, p.ID, model.PaymentStatusPending, model.PaymentStatusApproved, now))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, nil, p.ID, model.PaymentStatusPending, model.PaymentStatusRejected, now), ErrPaymentStatusInvalid)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, nil, p.ID, model.PaymentStatusApproved, model.PaymentStatusRejected, now), ErrPaymentStatusInvalid)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, got.Status)
	require.NotNil(t, got.Account)
	assert.Empty(t, got.Account.PasswordHash)
	require.NotNil(t, got.ReviewedAt)

	pending, err := repo.List(ctx, query.Params{}, ByPaymentStatus(model.PaymentStatusPending))
	require.NoError(t, err)
	assert.Equal(t, 0, pending.Count)
}

func TestPaymentRepository_DeleteByAccount(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	accounts := NewAccountRepository(db)
	repo := NewPaymentRepository(db)

	a := newAccount(t, accounts, "gone", 2, 0)
	for i, ref := range []string{"payments/a.png", ""} {
		require.NoError(t, repo.Create(ctx, nil, &model.Payment{
			PaymentNo: fmt.Sprintf("PMT-%d", i), AccountID: a.ID, Amount: 1,
			Category: model.PaymentCategoryFund, Status: model.PaymentStatusPending,
			FileRef: ref, Date: time.Now().UTC(),
		}))
	}

	refs, err := repo.DeleteByAccount(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"payments/a.png"}, refs)

	page, err := repo.List(ctx, query.Params{}, ByAccount(a.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
}

func TestEarningRepository_UniquePayment(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewEarningRepository(db)

	pid := int64(7)
	e := &model.Earning{Name: "asha", Category: "maintenance", Description: "d", Amount: 500, Date: time.Now().UTC(), PaymentID: &pid}
	require.NoError(t, repo.Create(ctx, nil, e))

	again := *e
	again.ID = 0
	assert.ErrorIs(t, repo.Create(ctx, nil, &again), ErrEarningExists)

	n, err := repo.CountByPayment(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// 手工录入的收入 payment_id 为空，不受唯一约束影响
	require.NoError(t, repo.Create(ctx, nil, &model.Earning{Name: "x", Category: "fund", Description: "d", Amount: 1, Date: time.Now().UTC()}))
	require.NoError(t, repo.Create(ctx, nil, &model.Earning{Name: "y", Category: "fund", Description: "d", Amount: 2, Date: time.Now().UTC()}))
}

func TestCollectionRepository(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewCollectionRepository(db)

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, ErrTotalNotFound)

	// 不存在时扣减不创建记录
	require.NoError(t, repo.Subtract(ctx, nil, 100))
	_, err = repo.Get(ctx)
	assert.ErrorIs(t, err, ErrTotalNotFound)

	require.NoError(t, repo.Add(ctx, nil, 500))
	require.NoError(t, repo.Add(ctx, nil, 250))
	require.NoError(t, repo.Subtract(ctx, nil, 50))

	total, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(700), total.TotalAmount)

	_, err = repo.Set(ctx, 10000)
	require.NoError(t, err)
	total, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total.TotalAmount)

	var count int64
	require.NoError(t, db.Model(&model.TotalMoneyCollected{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCollectionRepository_MySQLUpsertIsAtomic(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `total_money_collected`") + ".*" +
		regexp.QuoteMeta("ON DUPLICATE KEY UPDATE `total_amount`=total_amount + ?")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, NewCollectionRepository(db).Add(context.Background(), nil, 500))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobLogRepository(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewJobLogRepository(db)

	require.NoError(t, repo.Ensure(ctx, model.JobNameAccumulateDues))
	require.NoError(t, repo.Ensure(ctx, model.JobNameAccumulateDues))

	log, err := repo.Get(ctx, model.JobNameAccumulateDues)
	require.NoError(t, err)
	assert.Nil(t, log.LastRun)

	run := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkRun(ctx, nil, model.JobNameAccumulateDues, run))
	require.NoError(t, repo.MarkRun(ctx, nil, model.JobNameAccumulateDues, run.AddDate(0, 1, 0)))

	log, err = repo.Get(ctx, model.JobNameAccumulateDues)
	require.NoError(t, err)
	require.NotNil(t, log.LastRun)
	assert.True(t, run.AddDate(0, 1, 0).Equal(*log.LastRun))

	var count int64
	require.NoError(t, db.Model(&model.JobLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = repo.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrJobLogNotFound)
}

func TestAnnouncementRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewAnnouncementRepository(db)
	now := time.Now().UTC()

	live := &model.Announcement{Name: "water cut", Description: "d", ExpiresAt: now.Add(time.Hour)}
	old := &model.Announcement{Name: "old", Description: "d", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, nil, live))
	require.NoError(t, repo.Create(ctx, nil, old))

	page, err := repo.ListActive(ctx, query.Params{}, now)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, live.ID, page.Data[0].ID)

	_, err = repo.GetActive(ctx, old.ID, now)
	assert.ErrorIs(t, err, ErrAnnouncementNotFound)

	expired, err := repo.GetExpired(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	deleted, err := repo.DeleteExpired(ctx, old.ID, now)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.DeleteExpired(ctx, live.ID, now)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestOutboxRepository(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewOutboxRepository(db)

	msg := &model.OutboxMessage{MessageKey: "k", Topic: "t", Payload: "{}", Status: model.OutboxStatusPending}
	require.NoError(t, repo.Create(ctx, nil, msg))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.IncrementRetryCount(ctx, msg.ID))
	require.NoError(t, repo.MarkAsSent(ctx, msg.ID))

	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var got model.OutboxMessage
	require.NoError(t, db.First(&got, msg.ID).Error)
	assert.Equal(t, model.OutboxStatusSent, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}
