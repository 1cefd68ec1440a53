/*
Package user loads the health context that personalizes every generation
request and keeps a short-lived cache of it per user.
*/
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"HealthMate_V0.1/internal/database"
	"HealthMate_V0.1/internal/pipeline"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 5 * time.Minute
)

// ProfileStore is the subset of *database.Queries the loader needs.
type ProfileStore interface {
	GetHealthProfile(ctx context.Context, userID string) (database.UserHealthProfile, error)
	ListUserConditions(ctx context.Context, userID string) ([]string, error)
	ListUserGoals(ctx context.Context, userID string) ([]string, error)
}

// ProfileLoader assembles a pipeline.HealthProfile from the profile, condition
// and goal tables.
type ProfileLoader struct {
	store ProfileStore
	cache *lru.LRU[string, *pipeline.HealthProfile]
}

func NewProfileLoader(store ProfileStore, size int, ttl time.Duration) *ProfileLoader {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProfileLoader{
		store: store,
		cache: lru.NewLRU[string, *pipeline.HealthProfile](size, nil, ttl),
	}
}

// Load returns the user's profile, or nil when the user has none on record.
// An empty userID is anonymous and also yields nil.
func (l *ProfileLoader) Load(ctx context.Context, userID string) (*pipeline.HealthProfile, error) {
	if userID == "" {
		return nil, nil
	}
	if p, ok := l.cache.Get(userID); ok {
		return p, nil
	}

	var (
		row        database.UserHealthProfile
		found      bool
		conditions []string
		goals      []string
		mu         sync.Mutex
	)

	g, grpCtx := errgroup.WithContext(ctx)

	// 1. Base profile
	g.Go(func() error {
		val, err := l.store.GetHealthProfile(grpCtx, userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load health profile: %w", err)
		}
		mu.Lock()
		row, found = val, true
		mu.Unlock()
		return nil
	})

	// 2. Active conditions
	g.Go(func() error {
		val, err := l.store.ListUserConditions(grpCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to load conditions: %w", err)
		}
		mu.Lock()
		conditions = val
		mu.Unlock()
		return nil
	})

	// 3. Active goals
	g.Go(func() error {
		val, err := l.store.ListUserGoals(grpCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to load goals: %w", err)
		}
		mu.Lock()
		goals = val
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile := toHealthProfile(row, found, conditions, goals)
	l.cache.Add(userID, profile)

	zerolog.Ctx(ctx).Debug().
		Str("user_id", userID).
		Bool("has_profile", profile != nil).
		Msg("Health profile loaded")

	return profile, nil
}

// Invalidate drops the cached profile so the next Load hits the database.
func (l *ProfileLoader) Invalidate(userID string) {
	l.cache.Remove(userID)
}

func toHealthProfile(row database.UserHealthProfile, found bool, conditions, goals []string) *pipeline.HealthProfile {
	conditions = compact(conditions)
	goals = compact(goals)
	if !found && len(conditions) == 0 && len(goals) == 0 {
		return nil
	}

	p := &pipeline.HealthProfile{
		Conditions: conditions,
		Goals:      goals,
	}
	if !found {
		return p
	}

	if row.Age.Valid && row.Age.Int32 > 0 {
		age := int(row.Age.Int32)
		p.Age = &age
	}
	p.Gender = textPtr(row.Gender)
	p.WeightKg = numericPtr(row.WeightKg)
	p.HeightCm = numericPtr(row.HeightCm)
	if v := textPtr(row.DietPreference); v != nil {
		normalized := string(pipeline.NormalizeDietPreference(*v))
		p.DietPreference = &normalized
	}
	if v := textPtr(row.ActivityLevel); v != nil {
		normalized := string(pipeline.NormalizeActivityLevel(*v))
		p.ActivityLevel = &normalized
	}
	p.Allergies = compact(row.Allergies)
	return p
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := strings.TrimSpace(t.String)
	if s == "" {
		return nil
	}
	return &s
}

func numericPtr(n pgtype.Numeric) *float64 {
	if !n.Valid {
		return nil
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid || f.Float64 <= 0 {
		return nil
	}
	v := f.Float64
	return &v
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
