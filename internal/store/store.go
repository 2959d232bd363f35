// Package store persists tracked profiles, their daily metric series and the sync audit log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"socialsync-backend/internal/components/chrono"
	"socialsync-backend/internal/db"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"
	"strings"
)

// MetricPoint is one day of counts for a profile, there is at most one per profile and date.
type MetricPoint struct {
	SocialProfileID int64
	Date            string
	FollowersCount  int64
	PostsCount      int64
}

// SyncLog is one row of the append-only audit log, one per profile per attempt.
type SyncLog struct {
	RunID           string
	SocialProfileID int64
	Platform        platform.Platform
	Attempt         int
	Status          outcome.Status
	Code            outcome.Code
	Message         string
	// Followers and Posts are only set for successful attempts.
	Followers *int64
	Posts     *int64
}

// Filter narrows ListProfiles. Values within a field are alternatives, fields are combined,
// the zero Filter matches every profile.
type Filter struct {
	Handles   []string
	IDs       []int64
	Regions   []string
	Platforms []platform.Platform
}

func (f Filter) Empty() bool {
	return len(f.Handles) == 0 && len(f.IDs) == 0 && len(f.Regions) == 0 && len(f.Platforms) == 0
}

type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
	clock  chrono.API
}

func NewStore(database *sql.DB, clock chrono.API) Store {
	return Store{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		clock:  clock,
	}
}

func toProfile(row db.SocialProfile) platform.Profile {
	return platform.Profile{
		ID:         row.ID,
		Platform:   platform.Platform(row.Platform),
		Handle:     row.Handle,
		URL:        row.Url,
		ExternalID: row.ExternalID,
		Region:     row.Region,
	}
}

func (s Store) ListProfiles(ctx context.Context, filter Filter) ([]platform.Profile, error) {
	rows, err := s.qry.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	handles := map[string]bool{}
	for _, h := range filter.Handles {
		handles[platform.NormalizeHandle(h)] = true
	}
	ids := map[int64]bool{}
	for _, id := range filter.IDs {
		ids[id] = true
	}
	regions := map[string]bool{}
	for _, r := range filter.Regions {
		regions[strings.ToLower(strings.TrimSpace(r))] = true
	}
	platforms := map[platform.Platform]bool{}
	for _, p := range filter.Platforms {
		platforms[p] = true
	}

	profiles := make([]platform.Profile, 0, len(rows))
	for _, row := range rows {
		if len(handles) > 0 && !handles[platform.NormalizeHandle(row.Handle)] {
			continue
		}
		if len(ids) > 0 && !ids[row.ID] {
			continue
		}
		if len(regions) > 0 && !regions[strings.ToLower(row.Region)] {
			continue
		}
		if len(platforms) > 0 && !platforms[platform.Platform(row.Platform)] {
			continue
		}
		profiles = append(profiles, toProfile(row))
	}
	return profiles, nil
}

func (s Store) GetProfile(ctx context.Context, id int64) (platform.Profile, error) {
	row, err := s.qry.GetProfile(ctx, id)
	if err != nil {
		return platform.Profile{}, fmt.Errorf("get profile %d: %w", id, err)
	}
	return toProfile(row), nil
}

// AddProfiles inserts all profiles or none of them, handles are stored normalized.
func (s Store) AddProfiles(ctx context.Context, profiles []platform.Profile) ([]platform.Profile, error) {
	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("add profiles: %w", err)
	}
	defer discard()

	now := s.clock.Now().Unix()
	out := make([]platform.Profile, len(profiles))
	for i, p := range profiles {
		raw := strings.TrimSpace(p.Handle)
		p.Handle = platform.NormalizeHandle(raw)
		if err := platform.ValidateHandle(p.Handle); err != nil {
			return nil, fmt.Errorf("add profiles: %s '%s': %w", p.Platform, raw, err)
		}
		if strings.Contains(raw, "://") {
			if p.URL == "" {
				p.URL = raw
			}
			if p.ExternalID == "" {
				p.ExternalID = platform.ExternalIDFromURL(raw)
			}
		}
		parsed, err := platform.Parse(string(p.Platform))
		if err != nil {
			return nil, fmt.Errorf("add profiles: %w", err)
		}
		p.Platform = parsed

		id, err := txqry.CreateProfile(ctx, db.CreateProfileParams{
			Platform:   string(p.Platform),
			Handle:     p.Handle,
			Url:        p.URL,
			ExternalID: p.ExternalID,
			Region:     p.Region,
			CreatedAt:  now,
		})
		if err != nil {
			return nil, fmt.Errorf("add profile %s/@%s: %w", p.Platform, p.Handle, err)
		}
		p.ID = id
		out[i] = p
	}

	if err := commit(); err != nil {
		return nil, fmt.Errorf("add profiles: %w", err)
	}
	return out, nil
}

var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// UpsertMetricPoint writes the counts for (profile, date), overwriting counts already stored
// for that day.
func (s Store) UpsertMetricPoint(ctx context.Context, point MetricPoint) error {
	if !dateRegex.MatchString(point.Date) {
		return fmt.Errorf("upsert metric point: malformed date '%s'", point.Date)
	}
	if point.FollowersCount < 0 || point.PostsCount < 0 {
		return fmt.Errorf("upsert metric point: negative count for profile %d", point.SocialProfileID)
	}

	err := s.qry.UpsertMetricPoint(ctx, db.UpsertMetricPointParams{
		SocialProfileID: point.SocialProfileID,
		Date:            point.Date,
		FollowersCount:  point.FollowersCount,
		PostsCount:      point.PostsCount,
		UpdatedAt:       s.clock.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("upsert metric point for profile %d on %s: %w", point.SocialProfileID, point.Date, err)
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (s Store) AppendSyncLog(ctx context.Context, entry SyncLog) error {
	err := s.qry.CreateSyncLog(ctx, db.CreateSyncLogParams{
		RunID:           entry.RunID,
		SocialProfileID: entry.SocialProfileID,
		Platform:        string(entry.Platform),
		Attempt:         int64(entry.Attempt),
		Status:          string(entry.Status),
		Code:            string(entry.Code),
		Message:         entry.Message,
		FollowersCount:  nullInt(entry.Followers),
		PostsCount:      nullInt(entry.Posts),
		CreatedAt:       s.clock.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("append sync log for profile %d: %w", entry.SocialProfileID, err)
	}
	return nil
}

// History returns the stored series of a profile ordered by date.
func (s Store) History(ctx context.Context, profileID int64) ([]MetricPoint, error) {
	rows, err := s.qry.GetMetricPoints(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("history of profile %d: %w", profileID, err)
	}
	out := make([]MetricPoint, len(rows))
	for i, r := range rows {
		out[i] = MetricPoint{
			SocialProfileID: r.SocialProfileID,
			Date:            r.Date,
			FollowersCount:  r.FollowersCount,
			PostsCount:      r.PostsCount,
		}
	}
	return out, nil
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// SyncLogs returns the audit rows written by a run in insertion order.
func (s Store) SyncLogs(ctx context.Context, runID string) ([]SyncLog, error) {
	rows, err := s.qry.GetSyncLogsForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("sync logs of run %s: %w", runID, err)
	}
	out := make([]SyncLog, len(rows))
	for i, r := range rows {
		out[i] = SyncLog{
			RunID:           r.RunID,
			SocialProfileID: r.SocialProfileID,
			Platform:        platform.Platform(r.Platform),
			Attempt:         int(r.Attempt),
			Status:          outcome.Status(r.Status),
			Code:            outcome.Code(r.Code),
			Message:         r.Message,
			Followers:       fromNullInt(r.FollowersCount),
			Posts:           fromNullInt(r.PostsCount),
		}
	}
	return out, nil
}

// IsNotFound reports whether err is a lookup of a row that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
