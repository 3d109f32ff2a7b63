package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaibs/reqsearch/internal/model"
	appErr "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/repo"
	"github.com/shaibs/reqsearch/test/testutil"
)

func int64Ptr(v int64) *int64 { return &v }

func testRequest(id string, typeID, statusID, ctime int64) *model.Request {
	return &model.Request{
		ID:                 id,
		ProjectName:        "שיקום כבישים",
		ProjectDescription: "שיקום כבישים בשכונת הדר",
		AreaDescription:    "חיפה",
		JobDescription:     "קרצוף וריבוד",
		TypeID:             typeID,
		StatusID:           statusID,
		UpdatedBy:          "dana",
		CreatedBy:          "dana",
		ResponsibleName:    "משה לוי",
		ContactName:        "משה לוי",
		ContactEmail:       "moshe@example.com",
		ContactPhone:       "050-1234567",
		Ctime:              ctime,
		Mtime:              ctime,
	}
}

func TestRequestRepoUpsertGetAndUpdate(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, db)

	requests := repo.NewRequestRepo(db)
	ctx := context.Background()

	req := testRequest("221000226", 4, 1, 1700000000)
	req.StatusDate = 1700500000
	require.NoError(t, requests.Upsert(ctx, req))

	fetched, err := requests.GetByID(ctx, "221000226")
	require.NoError(t, err)
	require.Equal(t, "שיקום כבישים", fetched.ProjectName)
	require.Equal(t, "משה לוי", fetched.ResponsibleName)
	require.EqualValues(t, 4, fetched.TypeID)
	require.EqualValues(t, 1700500000, fetched.StatusDate)

	_, err = requests.GetByID(ctx, "999999999")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	req.ProjectName = "גינון"
	req.StatusID = 2
	req.Mtime = 1700600000
	require.NoError(t, requests.Upsert(ctx, req))

	fetched, err = requests.GetByID(ctx, "221000226")
	require.NoError(t, err)
	require.Equal(t, "גינון", fetched.ProjectName)
	require.EqualValues(t, 2, fetched.StatusID)

	count, err := requests.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRequestRepoListByIDsKeepsGivenOrder(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, db)

	requests := repo.NewRequestRepo(db)
	ctx := context.Background()
	for _, id := range []string{"400000001", "400000002", "400000003"} {
		require.NoError(t, requests.Upsert(ctx, testRequest(id, 4, 1, 1700000000)))
	}

	items, err := requests.ListByIDs(ctx, []string{"400000003", "400000001", "500000000", "400000002"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "400000003", items[0].ID)
	require.Equal(t, "400000001", items[1].ID)
	require.Equal(t, "400000002", items[2].ID)

	items, err = requests.ListByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestRequestRepoFilteredCountMatchesFilteredIDs(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, db)

	requests := repo.NewRequestRepo(db)
	ctx := context.Background()

	seed := []*model.Request{
		testRequest("400000001", 4, 1, 100),
		testRequest("400000002", 4, 2, 300),
		testRequest("400000003", 7, 1, 300),
		testRequest("400000004", 7, 2, 200),
	}
	seed[1].StatusDate = 150
	seed[3].StatusDate = 500
	for _, req := range seed {
		require.NoError(t, requests.Upsert(ctx, req))
	}

	cases := []struct {
		name   string
		filter *repo.SearchFilter
		ids    []string
	}{
		{
			name:   "by type",
			filter: &repo.SearchFilter{TypeID: int64Ptr(4)},
			ids:    []string{"400000002", "400000001"},
		},
		{
			name:   "type and status",
			filter: &repo.SearchFilter{TypeID: int64Ptr(7), StatusID: int64Ptr(1)},
			ids:    []string{"400000003"},
		},
		{
			name:   "ctime range",
			filter: &repo.SearchFilter{CtimeFrom: 150, CtimeTo: 250},
			ids:    []string{"400000004"},
		},
		{
			name:   "due before ignores unset due dates",
			filter: &repo.SearchFilter{DueBefore: 400},
			ids:    []string{"400000002"},
		},
		{
			name:   "no filter orders newest first with id tiebreak",
			filter: nil,
			ids:    []string{"400000002", "400000003", "400000004", "400000001"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := requests.ListFilteredIDs(ctx, tc.filter)
			require.NoError(t, err)
			require.Equal(t, tc.ids, ids)

			count, err := requests.CountFiltered(ctx, tc.filter)
			require.NoError(t, err)
			require.EqualValues(t, len(tc.ids), count)
		})
	}
}

func TestRequestRepoListPageAndMaxMtime(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, db)

	requests := repo.NewRequestRepo(db)
	ctx := context.Background()

	mtime, err := requests.MaxMtime(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, mtime)

	for i, id := range []string{"400000001", "400000002", "400000003"} {
		req := testRequest(id, 4, 1, 100)
		req.Mtime = int64(100 + i)
		require.NoError(t, requests.Upsert(ctx, req))
	}

	page, err := requests.ListPage(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "400000001", page[0].ID)
	require.Equal(t, "400000002", page[1].ID)

	page, err = requests.ListPage(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "400000003", page[0].ID)

	mtime, err = requests.MaxMtime(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 102, mtime)
}
