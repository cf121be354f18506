package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/testutil"
)

func TestVersionRepository_Create_AssignsSequentialNumbers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	for i := 0; i < 4; i++ {
		v := &model.ContractVersion{
			DealID:    deal.ID,
			FullText:  "contract text",
			Source:    model.SourceGenerated,
			CreatedBy: 1,
		}
		err := repo.Create(v)
		require.NoError(t, err)
		assert.Equal(t, i, v.VersionNumber)
	}

	versions, err := repo.ListByDeal(deal.ID)
	require.NoError(t, err)
	require.Len(t, versions, 4)

	// 版本号从 0 开始连续递增，无空洞
	for i, v := range versions {
		assert.Equal(t, i, v.VersionNumber)
	}
}

func TestVersionRepository_Create_IndependentPerDeal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	dealA := testutil.TestDeal(t, db, 1)
	dealB := testutil.TestDeal(t, db, 1)

	vA := &model.ContractVersion{DealID: dealA.ID, CreatedBy: 1}
	require.NoError(t, repo.Create(vA))

	vB := &model.ContractVersion{DealID: dealB.ID, CreatedBy: 1}
	require.NoError(t, repo.Create(vB))

	assert.Equal(t, 0, vA.VersionNumber)
	assert.Equal(t, 0, vB.VersionNumber)
}

func TestVersionRepository_Create_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	// sqlite 内存库串行执行事务，这里验证并发入口下编号依然连续
	var wg sync.WaitGroup
	var mu sync.Mutex
	numbers := make(map[int]bool)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := &model.ContractVersion{DealID: deal.ID, CreatedBy: 1}
			if err := repo.Create(v); err != nil {
				return
			}
			mu.Lock()
			numbers[v.VersionNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	versions, err := repo.ListByDeal(deal.ID)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, v := range versions {
		assert.False(t, seen[v.VersionNumber], "duplicate version number %d", v.VersionNumber)
		seen[v.VersionNumber] = true
	}
	for i := 0; i < len(versions); i++ {
		assert.True(t, seen[i], "missing version number %d", i)
	}
}

func TestVersionRepository_GetLatest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	testutil.TestVersion(t, db, deal.ID, 0)
	testutil.TestVersion(t, db, deal.ID, 1)
	latest := testutil.TestVersion(t, db, deal.ID, 2, testutil.WithFullText("latest text"))

	found, err := repo.GetLatest(deal.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, found.ID)
	assert.Equal(t, 2, found.VersionNumber)
	assert.Equal(t, "latest text", found.FullText)
}

func TestVersionRepository_GetLatest_NoVersions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	_, err := repo.GetLatest(deal.ID)
	assert.Error(t, err)
}

func TestVersionRepository_GetByNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	v0 := testutil.TestVersion(t, db, deal.ID, 0)
	testutil.TestVersion(t, db, deal.ID, 1)

	found, err := repo.GetByNumber(deal.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, v0.ID, found.ID)
}

func TestVersionRepository_ListByDeal_Ascending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	testutil.TestVersion(t, db, deal.ID, 2)
	testutil.TestVersion(t, db, deal.ID, 0)
	testutil.TestVersion(t, db, deal.ID, 1)

	versions, err := repo.ListByDeal(deal.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 0, versions[0].VersionNumber)
	assert.Equal(t, 1, versions[1].VersionNumber)
	assert.Equal(t, 2, versions[2].VersionNumber)
}

func TestVersionRepository_UpdateParsedContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)
	v := testutil.TestVersion(t, db, deal.ID, 0, testutil.WithFields(nil))

	fields := model.JSONMap{"purchase_price": "350000"}
	clauses := model.ClauseList{{Key: "inspection_contingency", Status: model.ClauseActive, Editable: true}}

	err := repo.UpdateParsedContent(v.ID, fields, clauses, "FAR_BAR_ASIS", "https://oss.example.com/contracts/1/v0.txt")
	require.NoError(t, err)

	found, err := repo.GetByID(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "350000", found.ExtractedFields["purchase_price"])
	assert.Equal(t, "FAR_BAR_ASIS", found.ContractType)
	assert.Equal(t, "https://oss.example.com/contracts/1/v0.txt", found.DocumentOSSURL)
	// 合同文本保持不变
	assert.Equal(t, v.FullText, found.FullText)
}

func TestVersionRepository_Count(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVersionRepository(db)
	deal := testutil.TestDeal(t, db, 1)

	count, err := repo.Count(deal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	testutil.TestVersion(t, db, deal.ID, 0)
	testutil.TestVersion(t, db, deal.ID, 1)

	count, err = repo.Count(deal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
