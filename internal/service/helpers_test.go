package service

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
	"github.com/wzlab/deal_go_server/internal/testutil"
)

type testServices struct {
	db          *gorm.DB
	jobQueue    *queue.Queue
	dealService *DealService
	jobService  *JobService
	crService   *ChangeRequestService
	verService  *VersionService
	letterSvc   *OfferLetterService
}

func setupServices(t *testing.T) (*testServices, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobQueue := queue.NewQueue(client, "test_jobs")

	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxSize:           10 << 20,
			AllowedExtensions: []string{".txt", ".md"},
		},
	}

	dealRepo := repository.NewDealRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	jobRepo := repository.NewJobRepository(db)
	crRepo := repository.NewChangeRequestRepository(db)
	letterRepo := repository.NewOfferLetterRepository(db)

	jobService := NewJobService(jobRepo, jobQueue)
	dealService := NewDealService(dealRepo, versionRepo, auditRepo, jobService, nil, cfg)
	crService := NewChangeRequestService(crRepo, versionRepo, dealService, jobService)
	verService := NewVersionService(versionRepo, dealService)
	letterSvc := NewOfferLetterService(letterRepo, dealService, jobService)

	svcs := &testServices{
		db:          db,
		jobQueue:    jobQueue,
		dealService: dealService,
		jobService:  jobService,
		crService:   crService,
		verService:  verService,
		letterSvc:   letterSvc,
	}

	cleanup := func() {
		client.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}

	return svcs, cleanup
}
