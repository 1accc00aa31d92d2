package dao

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testCtx      = context.Background()
	seatStatuses = []string{"confirmed", "attended"}
)

// newTestDB opens a private in-memory sqlite database with the full schema.
// A single connection keeps every statement on the same memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, InitTables(db))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) User {
	t.Helper()

	u, err := NewUserDAO(db).Insert(testCtx, User{
		Name:     "User " + email,
		Email:    email,
		Password: "hash",
		Role:     "student",
	})
	require.NoError(t, err)

	return u
}

func seedEvent(t *testing.T, db *gorm.DB, slug string, start time.Time, maxParticipants int) Event {
	t.Helper()

	e, err := NewEventDAO(db).Insert(testCtx, Event{
		Title:                slug,
		Description:          "about " + slug,
		Category:             "Technical",
		Slug:                 slug,
		OrganizerID:          1,
		Venue:                Venue{Name: "Main Hall", Capacity: 100},
		StartAt:              start,
		EndAt:                start.Add(2 * time.Hour),
		RegistrationDeadline: start.Add(-time.Hour),
		RegistrationRequired: true,
		MaxParticipants:      maxParticipants,
		Status:               "published",
		Visibility:           "public",
	})
	require.NoError(t, err)

	return e
}
