//go:build integration

package dao

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=portal",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=portal_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	require.NoError(t, resource.Expire(300))
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("postgres://portal:secret@%s/portal_test?sslmode=disable", resource.GetHostPort("5432/tcp"))

	var db *gorm.DB
	err = pool.Retry(func() error {
		var openErr error
		db, openErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                                   logger.Default.LogMode(logger.Silent),
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if openErr != nil {
			return openErr
		}
		sqlDB, openErr := db.DB()
		if openErr != nil {
			return openErr
		}
		return sqlDB.Ping()
	})
	require.NoError(t, err)
	require.NoError(t, InitTables(db))

	return db
}

func TestPostgres_UniqueViolations(t *testing.T) {
	db := newPostgresDB(t)
	users := NewUserDAO(db)

	sid := "S-1"
	_, err := users.Insert(testCtx, User{Name: "Ada", Email: "ada@campus.edu", Password: "x", Role: "student", StudentID: &sid})
	require.NoError(t, err)

	_, err = users.Insert(testCtx, User{Name: "Ada", Email: "ada@campus.edu", Password: "x", Role: "student"})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	_, err = users.Insert(testCtx, User{Name: "Bob", Email: "bob@campus.edu", Password: "x", Role: "student", StudentID: &sid})
	assert.ErrorIs(t, err, ErrUserStudentIDExists)
}

// Concurrent registrations never push the counter past the cap, and the
// counter always equals the number of seat-holding registrations.
func TestPostgres_ConcurrentRegistrationsRespectCapacity(t *testing.T) {
	db := newPostgresDB(t)
	regs := NewRegistrationDAO(db)
	events := NewEventDAO(db)

	const capacity, contenders = 5, 20
	e := seedEvent(t, db, "popular", time.Now().Add(72*time.Hour).UTC(), capacity)

	userIDs := make([]uint, contenders)
	for i := range userIDs {
		userIDs[i] = seedUser(t, db, fmt.Sprintf("u%d@campus.edu", i)).ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for _, id := range userIDs {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()

			_, err := regs.Insert(testCtx, newRegistration(userID, e.ID, "confirmed"), true)

			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				ok++
			case ErrEventFull:
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, capacity, ok)
	assert.Equal(t, contenders-capacity, full)
	assert.Equal(t, capacity, participants(t, events, e.ID))

	var seats int64
	require.NoError(t, db.Model(&Registration{}).
		Where("event_id = ? AND status IN ?", e.ID, seatStatuses).Count(&seats).Error)
	assert.EqualValues(t, capacity, seats)

	drifted, err := regs.Reconcile(testCtx, seatStatuses)
	require.NoError(t, err)
	assert.Zero(t, drifted)
}
