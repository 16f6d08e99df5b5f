package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/infrastructure/database/dbtest"
	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/model"
	"societyhub/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	store    *storage.LocalStore
	notifier *Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiryHours: 1},
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{Notification: "society.notification"},
		},
		Business: config.BusinessConfig{
			SocietyName:          "Test Society",
			DuesRates:            map[string]int64{"2": 700, "3": 1000},
			Timezone:             "UTC",
			AnnouncementTTLDays:  30,
			ResetTokenTTLMinutes: 60,
			ResetURL:             "http://localhost:3000/reset/",
			AdminEmails:          []string{"treasurer@example.com"},
			MaxRetryCount:        3,
		},
	}
	store, err := storage.NewLocalStore(t.TempDir(), time.UTC)
	require.NoError(t, err)
	return &testEnv{db: db, cfg: cfg, store: store, notifier: NewNotifier(db, cfg)}
}

func seedAccount(t *testing.T, db *gorm.DB, name string, houseType int, dues int64, mutate ...func(*model.Account)) *model.Account {
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
	for _, m := range mutate {
		m(a)
	}
	require.NoError(t, repository.NewAccountRepository(db).Create(context.Background(), a))
	return a
}

func reloadAccount(t *testing.T, db *gorm.DB, id int64) *model.Account {
	t.Helper()
	a, err := repository.NewAccountRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

func outboxNotifications(t *testing.T, db *gorm.DB) []model.Notification {
	t.Helper()
	var msgs []model.OutboxMessage
	require.NoError(t, db.Order("id ASC").Find(&msgs).Error)
	out := make([]model.Notification, 0, len(msgs))
	for _, m := range msgs {
		var n model.Notification
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &n))
		out = append(out, n)
	}
	return out
}

func upload(name, content string) *Upload {
	return &Upload{Filename: name, ContentType: "application/octet-stream", Body: strings.NewReader(content)}
}

func readDownload(t *testing.T, d *FileDownload) string {
	t.Helper()
	defer d.Body.Close()
	b, err := io.ReadAll(d.Body)
	require.NoError(t, err)
	return string(b)
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
