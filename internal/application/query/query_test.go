package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/application/command"
	"github.com/ecoquest/eco-explorer-hub/internal/application/query"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/memory"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

type env struct {
	clock    *timeutil.FixedClock
	repo     *persistence.ProfileRepository
	pipeline *command.Pipeline
	catalog  *curriculum.Catalog
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := timeutil.NewFixedClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	repo := persistence.NewProfileRepository(memory.New(), clock, logger.Nop(), persistence.RepositoryConfig{})
	return &env{
		clock:    clock,
		repo:     repo,
		pipeline: command.NewPipeline(repo, clock, nil, logger.Nop(), command.PipelineConfig{}),
		catalog:  curriculum.DefaultCatalog(),
	}
}

func TestGetUserProgress_FreshProfile(t *testing.T) {
	e := newEnv(t)
	h := query.NewGetUserProgressHandler(e.pipeline, e.catalog)

	res, err := h.Handle(context.Background(), query.GetUserProgressQuery{})
	require.NoError(t, err)

	assert.Equal(t, learner.DefaultLearnerID, res.Profile.ID)
	assert.Equal(t, learner.DefaultDisplayName, res.Profile.Name)
	assert.Equal(t, 0, res.Profile.StreakDays)
	assert.Equal(t, "2024-01-01", res.Profile.LastActiveDate)
	assert.NotNil(t, res.Profile.Badges)
	assert.NotNil(t, res.Profile.ModuleScores)
	assert.Len(t, res.Modules, 4)
	assert.Equal(t, 8, res.BadgesTotal)
	assert.False(t, res.StreakChanged)

	// чтение сохраняет профиль
	assert.Equal(t, int64(1), e.repo.Load(context.Background(), learner.DefaultLearnerID).Version)
}

func TestGetUserProgress_ExtendsStreakAndReportsModules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	quiz := command.NewRecordQuizResultHandler(e.pipeline, e.catalog)
	_, err := quiz.Handle(ctx, command.RecordQuizResultCommand{LearnerID: "kid-1", ModuleID: "recycling", Score: 2, TotalQuestions: 4})
	require.NoError(t, err)
	_, err = quiz.Handle(ctx, command.RecordQuizResultCommand{LearnerID: "kid-1", ModuleID: "climate", Score: 3, TotalQuestions: 4})
	require.NoError(t, err)

	e.clock.AddDays(1)
	h := query.NewGetUserProgressHandler(e.pipeline, e.catalog)
	res, err := h.Handle(ctx, query.GetUserProgressQuery{LearnerID: "kid-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Profile.StreakDays)
	assert.True(t, res.StreakChanged)
	assert.Equal(t, "2024-01-02", res.Raw().LastActiveDate)

	byID := map[string]query.ModuleProgressDTO{}
	for _, m := range res.Modules {
		byID[m.ModuleID] = m
	}
	assert.True(t, byID["climate"].Completed)
	assert.Equal(t, 100, byID["climate"].ProgressPercent)
	assert.False(t, byID["recycling"].Completed)
	assert.Equal(t, 2, byID["recycling"].BestScore)
	assert.Equal(t, 0, byID["water-energy"].ProgressPercent)
	assert.Equal(t, 1, res.BadgesEarned)
}

func TestGetUserProgress_InvalidLearner(t *testing.T) {
	e := newEnv(t)
	h := query.NewGetUserProgressHandler(e.pipeline, e.catalog)

	_, err := h.Handle(context.Background(), query.GetUserProgressQuery{LearnerID: "no spaces allowed"})
	assert.ErrorIs(t, err, shared.ErrInvalidLearnerID)
}

func TestGetDailyChallenge_DeterministicByDate(t *testing.T) {
	e := newEnv(t)
	h := query.NewGetDailyChallengeHandler(e.clock, e.repo)
	ctx := context.Background()

	// 2024+1+1 = 2026, 2026 % 10 = 6
	c, err := h.Handle(ctx, query.GetDailyChallengeQuery{})
	require.NoError(t, err)
	assert.Equal(t, "challenge-2024-01-01", c.ID)
	assert.Equal(t, "Unplug It", c.Title)
	assert.Equal(t, 10, c.Points)
	assert.False(t, c.Completed)

	again, err := h.Handle(ctx, query.GetDailyChallengeQuery{})
	require.NoError(t, err)
	assert.Equal(t, c, again)

	e.clock.AddDays(1)
	next, err := h.Handle(ctx, query.GetDailyChallengeQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Walk the Walk", next.Title)
	assert.Equal(t, 25, next.Points)
}

func TestGetDailyChallenge_CompletedFlag(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	complete := command.NewCompleteDailyChallengeHandler(e.pipeline)
	_, err := complete.Handle(ctx, command.CompleteDailyChallengeCommand{LearnerID: "kid-1", ChallengeID: "challenge-2024-01-01", Points: 10})
	require.NoError(t, err)

	h := query.NewGetDailyChallengeHandler(e.clock, e.repo)

	done, err := h.Handle(ctx, query.GetDailyChallengeQuery{LearnerID: "kid-1"})
	require.NoError(t, err)
	assert.True(t, done.Completed)

	other, err := h.Handle(ctx, query.GetDailyChallengeQuery{LearnerID: "kid-2"})
	require.NoError(t, err)
	assert.False(t, other.Completed)

	_, err = h.Handle(ctx, query.GetDailyChallengeQuery{Date: "2024-13-01"})
	assert.ErrorIs(t, err, shared.ErrInvalidChallengeID)
}

func TestGetAllBadges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	quiz := command.NewRecordQuizResultHandler(e.pipeline, e.catalog)
	_, err := quiz.Handle(ctx, command.RecordQuizResultCommand{LearnerID: "kid-1", ModuleID: "climate", Score: 4, TotalQuestions: 4})
	require.NoError(t, err)

	h := query.NewGetAllBadgesHandler(e.repo)

	anonymous, err := h.Handle(ctx, query.GetAllBadgesQuery{})
	require.NoError(t, err)
	require.Len(t, anonymous, 8)
	ids := make([]string, len(anonymous))
	for i, b := range anonymous {
		ids[i] = b.ID
		assert.False(t, b.Earned)
		assert.NotEmpty(t, b.Rule)
	}
	assert.Equal(t, []string{
		"recycle-hero", "water-saver", "energy-champion", "climate-warrior",
		"green-thumb", "eco-master", "quiz-whiz", "daily-star",
	}, ids)
	assert.Equal(t, "earn 500 eco points", anonymous[2].Rule)

	mine, err := h.Handle(ctx, query.GetAllBadgesQuery{LearnerID: "kid-1"})
	require.NoError(t, err)
	earned := map[string]bool{}
	for _, b := range mine {
		earned[b.ID] = b.Earned
	}
	assert.True(t, earned["climate-warrior"])
	assert.True(t, earned["quiz-whiz"])
	assert.False(t, earned["eco-master"])
}

func TestGetModules(t *testing.T) {
	e := newEnv(t)
	h := query.NewGetModulesHandler(e.catalog)
	ctx := context.Background()

	list, err := h.Handle(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "climate", list[0].ID)

	m, err := h.GetModule(ctx, query.GetModuleQuery{ModuleID: "recycling"})
	require.NoError(t, err)
	assert.Equal(t, m.QuestionCount, len(m.Quiz))
	assert.NotEmpty(t, m.Sections)

	_, err = h.GetModule(ctx, query.GetModuleQuery{ModuleID: "oceans"})
	assert.True(t, shared.IsNotFound(err))
}
