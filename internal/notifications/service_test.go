package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newNotificationsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Level: zerolog.ErrorLevel})
	svc, err := NewService(NewRepository(db), logg)
	require.NoError(t, err)
	return svc
}

func TestNotifyStoresNotice(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	userID := uuid.New()

	svc.Notify(context.Background(), Event{
		Type:    enums.NotificationRefundDecided,
		UserID:  &userID,
		Title:   "Refund approved",
		Message: "6000 cents on order BF-20260830-ABCDE",
	})

	result, err := svc.List(context.Background(), ListParams{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, enums.NotificationRefundDecided, result.Items[0].Type)
	assert.Nil(t, result.Items[0].ReadAt)
}

func TestNotifyDropsUnknownType(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)

	svc.Notify(context.Background(), Event{Type: "imaginary", Title: "x", Message: "y"})

	result, err := svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestOpsAlertsAreScopedSeparately(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	userID := uuid.New()

	svc.Notify(context.Background(), Event{Type: enums.NotificationLowStock, Title: "Low stock", Message: "BRK-RED below threshold"})
	svc.Notify(context.Background(), Event{Type: enums.NotificationOrderPaid, UserID: &userID, Title: "Paid", Message: "thanks"})

	ops, err := svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Len(t, ops.Items, 1)
	assert.Equal(t, enums.NotificationLowStock, ops.Items[0].Type)

	mine, err := svc.List(context.Background(), ListParams{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, enums.NotificationOrderPaid, mine.Items[0].Type)
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	userID := uuid.New()

	svc.Notify(context.Background(), Event{Type: enums.NotificationOrderPaid, UserID: &userID, Title: "a", Message: "a"})
	svc.Notify(context.Background(), Event{Type: enums.NotificationRefundDecided, UserID: &userID, Title: "b", Message: "b"})

	all, err := svc.List(context.Background(), ListParams{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)

	require.NoError(t, svc.MarkRead(context.Background(), &userID, all.Items[0].ID))

	unread, err := svc.List(context.Background(), ListParams{UserID: &userID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)

	// another user cannot mark it
	otherID := uuid.New()
	err = svc.MarkRead(context.Background(), &otherID, all.Items[1].ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	count, err := svc.MarkAllRead(context.Background(), &userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestListPaginatesWithCursor(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	userID := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Notification{
			ID:        uuid.New(),
			UserID:    &userID,
			Type:      enums.NotificationOrderPaid,
			Title:     "t",
			Message:   "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	first, err := svc.List(context.Background(), ListParams{UserID: &userID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{UserID: &userID, Limit: 3, Cursor: first.Cursor})
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Empty(t, second.Cursor)

	_, err = svc.List(context.Background(), ListParams{UserID: &userID, Cursor: "not-a-cursor"})
	require.Error(t, err)
}

type failingRepo struct {
	Repository
}

func (f failingRepo) Create(ctx context.Context, notification *models.Notification) error {
	return errors.New("db gone")
}

func TestNotifySwallowsStorageFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Level: zerolog.ErrorLevel})
	svc, err := NewService(failingRepo{}, logg)
	require.NoError(t, err)

	// must not panic or surface the error
	svc.Notify(context.Background(), Event{Type: enums.NotificationLowStock, Title: "t", Message: "m"})
}
