package persistence_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/memory"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// failingBackend fails every call with err.
type failingBackend struct {
	err error
}

func (f *failingBackend) Name() string { return "failing" }
func (f *failingBackend) Get(context.Context, string) (persistence.Record, error) {
	return persistence.Record{}, f.err
}
func (f *failingBackend) Put(context.Context, string, []byte, int64) (int64, error) {
	return 0, f.err
}
func (f *failingBackend) Ping(context.Context) error { return f.err }
func (f *failingBackend) Close() error               { return nil }

// unreadableBackend reports every stored record as corrupt, the way the
// redis backend answers for a hash that lost its document.
type unreadableBackend struct {
	*memory.Backend
}

func (u unreadableBackend) Get(ctx context.Context, key string) (persistence.Record, error) {
	rec, err := u.Backend.Get(ctx, key)
	if err != nil {
		return rec, err
	}
	return persistence.Record{Version: rec.Version}, persistence.ErrCorruptRecord
}

func newClock() *timeutil.FixedClock {
	return timeutil.NewFixedClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
}

func newRepo(t *testing.T, b persistence.Backend, buf *bytes.Buffer) *persistence.ProfileRepository {
	t.Helper()
	log := logger.Nop()
	if buf != nil {
		log = logger.New(logger.Options{Output: buf, Level: logger.LevelDebug, Format: logger.FormatJSON})
	}
	return persistence.NewProfileRepository(b, newClock(), log, persistence.RepositoryConfig{})
}

func TestProfileRepository_LoadMissingReturnsDefault(t *testing.T) {
	repo := newRepo(t, memory.New(), nil)

	p := repo.Load(context.Background(), "alice")

	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, learner.DefaultDisplayName, p.Name)
	assert.Equal(t, 0, p.Points)
	assert.Equal(t, 0, p.StreakDays)
	assert.Equal(t, "2024-03-15", p.LastActiveDate)
	assert.Empty(t, p.Badges)
	assert.Equal(t, int64(0), p.Version)
}

func TestProfileRepository_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	repo := newRepo(t, b, nil)

	p := repo.Load(ctx, "alice")
	p.Points = 150
	p.Badges = []string{"quiz-whiz", "climate-warrior"}
	p.CompletedModules = []string{"climate"}
	p.ModuleScores["climate"] = 5
	p.Impact = learner.Impact{TreesPlanted: 7, PlasticReduced: 10, EnergySaved: 150}

	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	got := repo.Load(ctx, "alice")
	assert.Equal(t, 150, got.Points)
	assert.Equal(t, []string{"quiz-whiz", "climate-warrior"}, got.Badges)
	assert.Equal(t, 5, got.BestScore("climate"))
	assert.Equal(t, p.Impact, got.Impact)
	assert.Equal(t, int64(1), got.Version)

	rec, err := b.Get(ctx, "eco_edu_user_progress:alice")
	require.NoError(t, err)
	assert.Contains(t, string(rec.Data), `"completedModules":["climate"]`)
}

func TestProfileRepository_StaleSaveConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, memory.New(), nil)

	first := repo.Load(ctx, "alice")
	second := repo.Load(ctx, "alice")

	first.Points = 10
	require.NoError(t, repo.Save(ctx, first))

	second.Points = 20
	err := repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrProfileConflict)

	assert.Equal(t, 10, repo.Load(ctx, "alice").Points)
}

func TestProfileRepository_CorruptDocumentIsReplaced(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	buf := &bytes.Buffer{}
	repo := newRepo(t, b, buf)

	b.Raw(repo.Key("alice"), []byte("{not json"))

	p := repo.Load(ctx, "alice")
	assert.Equal(t, 0, p.Points)
	assert.Equal(t, int64(1), p.Version)
	assert.Contains(t, buf.String(), "stored profile is corrupt")

	p.Points = 5
	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, 5, repo.Load(ctx, "alice").Points)
}

func TestProfileRepository_CorruptRecordKeepsVersion(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	buf := &bytes.Buffer{}
	repo := newRepo(t, unreadableBackend{b}, buf)

	b.Raw(repo.Key("alice"), []byte(`{"points":40}`))
	b.Raw(repo.Key("alice"), []byte(`{"points":40}`))

	p := repo.Load(ctx, "alice")
	assert.Equal(t, 0, p.Points)
	assert.Equal(t, int64(2), p.Version)
	assert.Contains(t, buf.String(), "stored profile is corrupt")

	p.Points = 5
	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, int64(3), p.Version)

	rec, err := b.Get(ctx, repo.Key("alice"))
	require.NoError(t, err)
	stored, err := persistence.DecodeProfile(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Points)
}

func TestProfileRepository_SchemaDriftIsNormalized(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	buf := &bytes.Buffer{}
	repo := newRepo(t, b, buf)

	b.Raw(repo.Key("bob"), []byte(`{"points":-5,"badges":["eco-starter","eco-starter"],"lastActiveDate":"yesterday"}`))

	p := repo.Load(ctx, "bob")
	assert.Equal(t, "bob", p.ID)
	assert.Equal(t, 0, p.Points)
	assert.Equal(t, []string{"eco-starter"}, p.Badges)
	assert.Equal(t, "2024-03-15", p.LastActiveDate)
	assert.NotNil(t, p.ModuleScores)
	assert.Contains(t, buf.String(), "stored profile repaired")
}

func TestProfileRepository_ForeignIDStaysUnderItsKey(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	repo := newRepo(t, b, nil)

	b.Raw(repo.Key("alice"), []byte(`{"id":"guest-user","points":100}`))

	guest := repo.Load(ctx, "guest-user")
	guest.Points = 5
	require.NoError(t, repo.Save(ctx, guest))

	for i := 0; i < 2; i++ {
		p := repo.Load(ctx, "alice")
		assert.Equal(t, "alice", p.ID)
		p.Points += 10
		require.NoError(t, repo.Save(ctx, p))
	}

	assert.Equal(t, 120, repo.Load(ctx, "alice").Points)
	assert.Equal(t, 5, repo.Load(ctx, "guest-user").Points)

	rec, err := b.Get(ctx, repo.Key("alice"))
	require.NoError(t, err)
	assert.Contains(t, string(rec.Data), `"id":"alice"`)
}

func TestProfileRepository_BackendFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}
	repo := newRepo(t, &failingBackend{err: errors.New("disk on fire")}, buf)

	p := repo.Load(ctx, "alice")
	require.NotNil(t, p)
	assert.Equal(t, "alice", p.ID)

	p.Points = 10
	assert.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, int64(0), p.Version)
	assert.Contains(t, buf.String(), "profile load failed")
	assert.Contains(t, buf.String(), "profile save failed")
	assert.Error(t, repo.Ping(ctx))
}

func TestProfileRepository_KeyPrefix(t *testing.T) {
	repo := persistence.NewProfileRepository(memory.New(), newClock(), nil, persistence.RepositoryConfig{KeyPrefix: "test"})
	assert.Equal(t, "test:alice", repo.Key("alice"))
	assert.Equal(t, "memory", repo.BackendName())
}

func TestCodec_RoundTripKeepsCollectionsNonNil(t *testing.T) {
	data, err := persistence.EncodeProfile(&learner.Profile{ID: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"badges":[]`)
	assert.Contains(t, string(data), `"moduleScores":{}`)

	_, err = persistence.DecodeProfile([]byte(`{"points":"many"}`))
	assert.Error(t, err)
}
