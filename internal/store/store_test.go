package store

import (
	"context"
	"errors"
	"socialsync-backend/internal/components/chrono"
	"socialsync-backend/internal/db"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"
	"socialsync-backend/lib/testutil"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var fixedClock = chrono.FixedImpl{At: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

func newTestStore(t testing.TB) Store {
	sqlite := testutil.SetupDB(t, testutil.DBParams{Schema: db.Schema})
	return NewStore(sqlite, fixedClock)
}

func seed(t testing.TB, s Store) []platform.Profile {
	profiles, err := s.AddProfiles(context.Background(), []platform.Profile{
		{Platform: platform.Instagram, Handle: "@NatGeo", Region: "us"},
		{Platform: platform.Instagram, Handle: "nasa", Region: "us"},
		{Platform: platform.TikTok, Handle: "khaby.lame", Region: "it"},
		{Platform: "x", Handle: "https://x.com/elonmusk", Region: "US"},
	})
	require.NoError(t, err)
	return profiles
}

func TestAddProfiles(t *testing.T) {
	s := newTestStore(t)
	profiles := seed(t, s)

	require.Len(t, profiles, 4)
	require.Equal(t, "natgeo", profiles[0].Handle)
	require.Equal(t, platform.Twitter, profiles[3].Platform)
	require.Equal(t, "elonmusk", profiles[3].Handle)
	require.NotZero(t, profiles[0].ID)

	// a duplicate aborts the whole batch
	_, err := s.AddProfiles(context.Background(), []platform.Profile{
		{Platform: platform.YouTube, Handle: "veritasium"},
		{Platform: platform.Instagram, Handle: "NATGEO"},
	})
	require.Error(t, err)

	all, err := s.ListProfiles(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestAddProfilesFromURL(t *testing.T) {
	s := newTestStore(t)

	profiles, err := s.AddProfiles(context.Background(), []platform.Profile{
		{Platform: platform.YouTube, Handle: "https://www.youtube.com/channel/UC111"},
		{Platform: platform.Facebook, Handle: "https://www.facebook.com/profile.php?id=100064"},
	})
	require.NoError(t, err)
	require.Equal(t, "uc111", profiles[0].Handle)
	require.Equal(t, "UC111", profiles[0].ExternalID)
	require.Equal(t, "https://www.youtube.com/channel/UC111", profiles[0].URL)
	require.Equal(t, "100064", profiles[1].Handle)
	require.Equal(t, "100064", profiles[1].ExternalID)

	for _, handle := range []string{"channel", "https://www.youtube.com/channel/", "https://www.facebook.com/profile.php", "@"} {
		_, err := s.AddProfiles(context.Background(), []platform.Profile{
			{Platform: platform.YouTube, Handle: handle},
		})
		require.Error(t, err, handle)
	}
}

func TestListProfilesFilter(t *testing.T) {
	s := newTestStore(t)
	profiles := seed(t, s)

	table := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "empty", filter: Filter{}, expected: []string{"natgeo", "nasa", "khaby.lame", "elonmusk"}},
		{name: "handles", filter: Filter{Handles: []string{"@NASA", "khaby.lame"}}, expected: []string{"nasa", "khaby.lame"}},
		{name: "ids", filter: Filter{IDs: []int64{profiles[0].ID}}, expected: []string{"natgeo"}},
		{name: "regions", filter: Filter{Regions: []string{"US"}}, expected: []string{"natgeo", "nasa", "elonmusk"}},
		{name: "combined", filter: Filter{Regions: []string{"us"}, Platforms: []platform.Platform{platform.Twitter}}, expected: []string{"elonmusk"}},
		{name: "no match", filter: Filter{Handles: []string{"nobody"}}, expected: []string{}},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			result, err := s.ListProfiles(context.Background(), test.filter)
			require.NoError(t, err)
			handles := []string{}
			for _, p := range result {
				handles = append(handles, p.Handle)
			}
			require.ElementsMatch(t, test.expected, handles)
		})
	}
}

func TestUpsertMetricPointIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	profiles := seed(t, s)
	ctx := context.Background()
	id := profiles[0].ID

	require.NoError(t, s.UpsertMetricPoint(ctx, MetricPoint{SocialProfileID: id, Date: "2024-05-01", FollowersCount: 10, PostsCount: 1}))
	require.NoError(t, s.UpsertMetricPoint(ctx, MetricPoint{SocialProfileID: id, Date: "2024-05-01", FollowersCount: 12, PostsCount: 2}))
	require.NoError(t, s.UpsertMetricPoint(ctx, MetricPoint{SocialProfileID: id, Date: "2024-04-30", FollowersCount: 0, PostsCount: 0}))

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []MetricPoint{
		{SocialProfileID: id, Date: "2024-04-30", FollowersCount: 0, PostsCount: 0},
		{SocialProfileID: id, Date: "2024-05-01", FollowersCount: 12, PostsCount: 2},
	}, history)
}

func TestUpsertMetricPointValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.Error(t, s.UpsertMetricPoint(ctx, MetricPoint{SocialProfileID: 1, Date: "01/05/2024", FollowersCount: 1}))
	require.Error(t, s.UpsertMetricPoint(ctx, MetricPoint{SocialProfileID: 1, Date: "2024-05-01", FollowersCount: -1}))
}

func TestSyncLogs(t *testing.T) {
	s := newTestStore(t)
	profiles := seed(t, s)
	ctx := context.Background()

	followers := int64(12)
	require.NoError(t, s.AppendSyncLog(ctx, SyncLog{
		RunID:           "run-1",
		SocialProfileID: profiles[0].ID,
		Platform:        platform.Instagram,
		Attempt:         1,
		Status:          outcome.StatusSuccess,
		Followers:       &followers,
	}))
	require.NoError(t, s.AppendSyncLog(ctx, SyncLog{
		RunID:           "run-1",
		SocialProfileID: profiles[1].ID,
		Platform:        platform.Instagram,
		Attempt:         1,
		Status:          outcome.StatusError,
		Code:            outcome.CodeTimeout,
		Message:         "run did not finish",
	}))
	require.NoError(t, s.AppendSyncLog(ctx, SyncLog{RunID: "run-2", SocialProfileID: profiles[1].ID, Platform: platform.Instagram, Attempt: 1, Status: outcome.StatusSuccess}))

	logs, err := s.SyncLogs(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, int64(12), *logs[0].Followers)
	require.Nil(t, logs[0].Posts)
	require.Equal(t, outcome.CodeTimeout, logs[1].Code)
	require.Nil(t, logs[1].Followers)
}

func TestGetProfileMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProfile(context.Background(), 42)
	require.True(t, IsNotFound(err))
}

func TestUpsertMetricPointFailure(t *testing.T) {
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockdb.Close()

	mock.ExpectExec("insert into metric_points").
		WithArgs(int64(7), "2024-05-01", int64(10), int64(1), fixedClock.Now().Unix()).
		WillReturnError(errors.New("database is locked"))

	s := NewStore(mockdb, fixedClock)
	err = s.UpsertMetricPoint(context.Background(), MetricPoint{
		SocialProfileID: 7,
		Date:            "2024-05-01",
		FollowersCount:  10,
		PostsCount:      1,
	})
	require.ErrorContains(t, err, "database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}
