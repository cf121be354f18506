package cron

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
	"github.com/wzlab/deal_go_server/internal/testutil"
)

func setupCron(t *testing.T) (*Service, *gorm.DB, *queue.Queue, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobQueue := queue.NewQueue(client, "test_jobs")

	dealRepo := repository.NewDealRepository(db)
	jobRepo := repository.NewJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	svc := NewService(dealRepo, jobRepo, auditRepo, nil, jobQueue, 7)

	cleanup := func() {
		client.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}
	return svc, db, jobQueue, cleanup
}

func TestCron_SweepStaleDeals(t *testing.T) {
	svc, db, _, cleanup := setupCron(t)
	defer cleanup()

	// ListStale 依赖 updated_at，直接回写绕过 gorm 的自动时间戳
	stale := testutil.TestDeal(t, db, 1, testutil.WithState(model.StateWaitingOnSeller))
	require.NoError(t, db.Model(&model.Deal{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", time.Now().AddDate(0, 0, -10)).Error)

	testutil.TestDeal(t, db, 1, testutil.WithState(model.StateWaitingOnBuyer))

	reminded := svc.SweepStaleDeals()
	assert.Equal(t, 1, reminded)

	var events []model.AuditEvent
	require.NoError(t, db.Where("deal_id = ?", stale.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "stale_deal_reminder", events[0].Action)
	assert.Nil(t, events[0].UserID)
}

func TestCron_RequeueOrphanedJobs(t *testing.T) {
	svc, db, jobQueue, cleanup := setupCron(t)
	defer cleanup()

	jobRepo := repository.NewJobRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	orphan := testutil.TestJob(t, db, deal.ID, 1, model.JobParseContract, model.JobStatusProcessing)
	payload := `{"job_id":` + strconv.FormatInt(orphan.ID, 10) +
		`,"deal_id":` + strconv.FormatInt(deal.ID, 10) +
		`,"user_id":1,"job_type":"parse_contract"}`
	require.NoError(t, db.Model(&model.JobRecord{}).Where("id = ?", orphan.ID).Updates(map[string]interface{}{
		"started_at": time.Now().Add(-time.Hour),
		"payload":    payload,
	}).Error)

	noPayload := testutil.TestJob(t, db, deal.ID, 1, model.JobGenerateTimeline, model.JobStatusProcessing)
	require.NoError(t, db.Model(&model.JobRecord{}).Where("id = ?", noPayload.ID).
		UpdateColumn("started_at", time.Now().Add(-time.Hour)).Error)

	recent := testutil.TestJob(t, db, deal.ID, 1, model.JobGenerateVersion, model.JobStatusProcessing)
	require.NoError(t, db.Model(&model.JobRecord{}).Where("id = ?", recent.ID).
		UpdateColumn("started_at", time.Now()).Error)

	requeued := svc.RequeueOrphanedJobs(context.Background())
	assert.Equal(t, 1, requeued)

	msg, err := jobQueue.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, orphan.ID, msg.JobID)

	reset, err := jobRepo.GetByID(orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, reset.Status)
	assert.Nil(t, reset.StartedAt)

	failed, err := jobRepo.GetByID(noPayload.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, failed.Status)

	untouched, err := jobRepo.GetByID(recent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, untouched.Status)
}
