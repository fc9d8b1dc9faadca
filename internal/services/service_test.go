package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock is the fixed "now" used across service tests: 14:00 UTC.
var testClock = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.PlanTemplate{},
		&models.PlanInstance{},
		&models.UserBlockProgress{},
		&models.Thread{},
		&models.Notification{},
		&models.ActivityLog{},
	))
	return db
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeThreads counts thread creations so tests can assert idempotency.
type fakeThreads struct {
	calls int
}

func (f *fakeThreads) CreateThread(groupID, planID, userID uuid.UUID, blockIndex int, question string) (string, error) {
	f.calls++
	return fmt.Sprintf("thread-%d", f.calls), nil
}

func createUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Email: uuid.NewString() + "@example.com", Name: "Tester"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createGroup(t *testing.T, db *gorm.DB, ownerID uuid.UUID, tzOffset float64) models.Group {
	t.Helper()
	group := models.Group{OwnerID: ownerID, Name: "Study Group", TimeZone: tzOffset}
	require.NoError(t, db.Create(&group).Error)
	return group
}

// questionBlock is one block holding a single question activity.
func questionBlock(name, question string) models.Block {
	return models.Block{
		Name: name,
		Activities: []models.Activity{
			{Type: models.ActivityQuestion, Question: &models.QuestionActivity{Question: question}},
		},
	}
}

func createTemplate(t *testing.T, db *gorm.DB, authorID uuid.UUID, pace string, blocks ...models.Block) models.PlanTemplate {
	t.Helper()
	tpl := models.PlanTemplate{
		AuthorID: authorID,
		Name:     "Gospel of John",
		Pace:     pace,
		Duration: len(blocks),
		State:    models.TemplateCompleted,
		Blocks:   datatypes.JSONSlice[models.Block](blocks),
	}
	require.NoError(t, db.Create(&tpl).Error)
	return tpl
}
