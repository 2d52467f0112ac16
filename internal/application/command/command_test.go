package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/memory"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

// conflictingRepo reports a version conflict for the first n saves.
type conflictingRepo struct {
	learner.Repository
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (r *conflictingRepo) Save(ctx context.Context, p *learner.Profile) error {
	r.mu.Lock()
	r.saves++
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return shared.ErrProfileConflict
	}
	r.mu.Unlock()
	return r.Repository.Save(ctx, p)
}

type fixture struct {
	repo      *persistence.ProfileRepository
	clock     *timeutil.FixedClock
	events    *recorder
	pipeline  *Pipeline
	quiz      *RecordQuizResultHandler
	answers   *SubmitQuizAnswersHandler
	challenge *CompleteDailyChallengeHandler
	game      *AddGamePointsHandler
	round     *SubmitGameRoundHandler
	reset     *ResetProgressHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := timeutil.NewFixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	repo := persistence.NewProfileRepository(memory.New(), clock, logger.Nop(), persistence.RepositoryConfig{})
	return newFixtureWithRepo(t, clock, repo, repo)
}

func newFixtureWithRepo(t *testing.T, clock *timeutil.FixedClock, base *persistence.ProfileRepository, repo learner.Repository) *fixture {
	t.Helper()
	events := &recorder{}
	pipeline := NewPipeline(repo, clock, events, logger.Nop(), PipelineConfig{})
	catalog := curriculum.DefaultCatalog()
	quiz := NewRecordQuizResultHandler(pipeline, catalog)
	game := NewAddGamePointsHandler(pipeline)

	return &fixture{
		repo:      base,
		clock:     clock,
		events:    events,
		pipeline:  pipeline,
		quiz:      quiz,
		answers:   NewSubmitQuizAnswersHandler(catalog, quiz),
		challenge: NewCompleteDailyChallengeHandler(pipeline),
		game:      game,
		round:     NewSubmitGameRoundHandler(game),
		reset:     NewResetProgressHandler(pipeline),
	}
}

func (f *fixture) seed(t *testing.T, id string, mutate func(p *learner.Profile)) {
	t.Helper()
	ctx := context.Background()
	p := f.repo.Load(ctx, id)
	mutate(p)
	require.NoError(t, f.repo.Save(ctx, p))
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD QUIZ RESULT
// ══════════════════════════════════════════════════════════════════════════════

func TestRecordQuizResult_PerfectClimateQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.quiz.Handle(ctx, RecordQuizResultCommand{LearnerID: "alice", ModuleID: "climate", Score: 4, TotalQuestions: 4})
	require.NoError(t, err)

	assert.Equal(t, 150, res.PointsEarned)
	assert.Equal(t, 150, res.Profile.Points)
	assert.True(t, res.IsNewCompletion)
	assert.Equal(t, []string{"quiz-whiz", "climate-warrior"}, res.NewBadges)
	assert.Equal(t, []string{"climate"}, res.Profile.CompletedModules)
	assert.Equal(t, learner.Impact{TreesPlanted: 7, PlasticReduced: 10, EnergySaved: 150}, res.Profile.Impact)

	stored := f.repo.Load(ctx, "alice")
	assert.Equal(t, 150, stored.Points)
	assert.Equal(t, []string{"quiz-whiz", "climate-warrior"}, stored.Badges)

	assert.Equal(t, []shared.EventType{
		shared.EventPointsEarned,
		shared.EventModuleCompleted,
		shared.EventBadgeEarned,
		shared.EventBadgeEarned,
	}, f.events.types())
}

func TestRecordQuizResult_BelowThreshold(t *testing.T) {
	f := newFixture(t)

	res, err := f.quiz.Handle(context.Background(), RecordQuizResultCommand{LearnerID: "alice", ModuleID: "recycling", Score: 2, TotalQuestions: 4})
	require.NoError(t, err)

	assert.Equal(t, 50, res.PointsEarned)
	assert.Equal(t, 50, res.Profile.Points)
	assert.False(t, res.IsNewCompletion)
	assert.Empty(t, res.Profile.CompletedModules)
	assert.Empty(t, res.NewBadges)
	assert.Equal(t, 2, res.Profile.BestScore("recycling"))
}

func TestRecordQuizResult_RetakeKeepsBestScoreAndCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.quiz.Handle(ctx, RecordQuizResultCommand{LearnerID: "alice", ModuleID: "recycling", Score: 3, TotalQuestions: 4})
	require.NoError(t, err)
	assert.True(t, first.IsNewCompletion)
	assert.Equal(t, []string{"recycle-hero"}, first.NewBadges)

	second, err := f.quiz.Handle(ctx, RecordQuizResultCommand{LearnerID: "alice", ModuleID: "recycling", Score: 1, TotalQuestions: 4})
	require.NoError(t, err)
	assert.False(t, second.IsNewCompletion)
	assert.Empty(t, second.NewBadges)
	assert.Equal(t, 3, second.Profile.BestScore("recycling"))
	assert.Equal(t, []string{"recycling"}, second.Profile.CompletedModules)
	assert.Equal(t, 75+25, second.Profile.Points)
}

func TestRecordQuizResult_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  RecordQuizResultCommand
		want error
	}{
		{"negative score", RecordQuizResultCommand{ModuleID: "climate", Score: -1, TotalQuestions: 4}, shared.ErrInvalidScore},
		{"score above total", RecordQuizResultCommand{ModuleID: "climate", Score: 5, TotalQuestions: 4}, shared.ErrInvalidScore},
		{"zero total", RecordQuizResultCommand{ModuleID: "climate", Score: 0, TotalQuestions: 0}, shared.ErrInvalidTotal},
		{"unknown module", RecordQuizResultCommand{ModuleID: "volcanoes", Score: 1, TotalQuestions: 4}, shared.ErrUnknownModule},
		{"bad learner id", RecordQuizResultCommand{LearnerID: "../etc", ModuleID: "climate", Score: 1, TotalQuestions: 4}, shared.ErrInvalidLearnerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.quiz.Handle(ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 0, f.repo.Load(ctx, learner.DefaultLearnerID).Points)
	assert.Empty(t, f.events.types())
}

func TestSubmitQuizAnswers_GradesThenRecords(t *testing.T) {
	f := newFixture(t)

	module, err := curriculum.DefaultCatalog().Module("green-habits")
	require.NoError(t, err)
	answers := make([]int, len(module.Quiz))
	for i, q := range module.Quiz {
		answers[i] = q.CorrectIndex
	}

	res, err := f.answers.Handle(context.Background(), SubmitQuizAnswersCommand{LearnerID: "alice", ModuleID: "green-habits", Answers: answers})
	require.NoError(t, err)

	assert.True(t, res.Grade.Perfect())
	assert.Equal(t, 150, res.PointsEarned)
	assert.Contains(t, res.NewBadges, "green-thumb")

	_, err = f.answers.Handle(context.Background(), SubmitQuizAnswersCommand{ModuleID: "nope"})
	assert.ErrorIs(t, err, shared.ErrUnknownModule)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGE / GAMES / RESET
// ══════════════════════════════════════════════════════════════════════════════

func TestCompleteDailyChallenge_SecondCallIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := CompleteDailyChallengeCommand{LearnerID: "alice", ChallengeID: "challenge-2024-01-01", Points: 10}

	first, err := f.challenge.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, 10, first.PointsEarned)
	assert.Equal(t, 10, first.Profile.Points)
	assert.Equal(t, learner.Impact{TreesPlanted: 1, PlasticReduced: 2, EnergySaved: 10}, first.Profile.Impact)

	second, err := f.challenge.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, 0, second.PointsEarned)
	assert.Empty(t, second.NewBadges)
	assert.Equal(t, 10, second.Profile.Points)
	assert.Equal(t, []string{"challenge-2024-01-01"}, second.Profile.DailyChallengesCompleted)
}

func TestCompleteDailyChallenge_DailyStar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var last *CompleteDailyChallengeResult
	for _, day := range []string{"01", "02", "03", "04", "05"} {
		res, err := f.challenge.Handle(ctx, CompleteDailyChallengeCommand{LearnerID: "alice", ChallengeID: "challenge-2024-01-" + day, Points: 10})
		require.NoError(t, err)
		last = res
	}
	assert.Equal(t, []string{"daily-star"}, last.NewBadges)
}

func TestCompleteDailyChallenge_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.challenge.Handle(ctx, CompleteDailyChallengeCommand{ChallengeID: "today", Points: 10})
	assert.ErrorIs(t, err, shared.ErrInvalidChallengeID)

	_, err = f.challenge.Handle(ctx, CompleteDailyChallengeCommand{ChallengeID: "challenge-2024-02-30", Points: 10})
	assert.ErrorIs(t, err, shared.ErrInvalidChallengeID)

	_, err = f.challenge.Handle(ctx, CompleteDailyChallengeCommand{ChallengeID: "challenge-2024-01-01", Points: -5})
	assert.ErrorIs(t, err, shared.ErrInvalidPoints)
	assert.True(t, shared.IsValidation(err))
}

func TestAddGamePoints_EnergyChampion(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", func(p *learner.Profile) { p.Points = 490 })

	res, err := f.game.Handle(context.Background(), AddGamePointsCommand{LearnerID: "alice", Points: 10})
	require.NoError(t, err)

	assert.Equal(t, 500, res.Profile.Points)
	assert.Equal(t, []string{"energy-champion"}, res.NewBadges)
	assert.Equal(t, learner.Impact{TreesPlanted: 0, PlasticReduced: 1, EnergySaved: 10}, res.Profile.Impact)

	_, err = f.game.Handle(context.Background(), AddGamePointsCommand{Points: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidPoints)
}

func TestSubmitGameRound_CreditsServerScore(t *testing.T) {
	f := newFixture(t)

	items := curriculum.RecycleItems()
	answers := []curriculum.RoundAnswer{
		{Item: items[0].ID, Bin: items[0].Bin},
		{Item: items[1].ID, Bin: items[1].Bin},
	}

	res, err := f.round.Handle(context.Background(), SubmitGameRoundCommand{LearnerID: "alice", Game: "recycling-sort", Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Score.Points)
	assert.Equal(t, 20, res.Profile.Points)

	_, err = f.round.Handle(context.Background(), SubmitGameRoundCommand{Game: "tetris"})
	assert.ErrorIs(t, err, shared.ErrUnknownGame)
}

func TestResetProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.quiz.Handle(ctx, RecordQuizResultCommand{LearnerID: "alice", ModuleID: "climate", Score: 4, TotalQuestions: 4})
	require.NoError(t, err)

	f.clock.AddDays(3)
	res, err := f.reset.Handle(ctx, ResetProgressCommand{LearnerID: "alice"})
	require.NoError(t, err)

	assert.Equal(t, 150, res.PreviousPoints)
	assert.Equal(t, 0, res.Profile.Points)
	assert.Empty(t, res.Profile.Badges)
	assert.Empty(t, res.Profile.CompletedModules)
	assert.Equal(t, 0, res.Profile.StreakDays)
	assert.Equal(t, "2024-03-18", res.Profile.LastActiveDate)

	stored := f.repo.Load(ctx, "alice")
	assert.Equal(t, 0, stored.Points)
	assert.Empty(t, stored.Badges)
}

func TestCreateLearner(t *testing.T) {
	f := newFixture(t)
	h := NewCreateLearnerHandler(f.reset)
	h.newID = func() string { return "b6f1c7e2-0000-4000-8000-000000000001" }

	p, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b6f1c7e2-0000-4000-8000-000000000001", p.ID)
	assert.Equal(t, int64(1), p.Version)
}

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

func TestPipeline_StreakAcrossDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	add := func() *learner.Profile {
		res, err := f.game.Handle(ctx, AddGamePointsCommand{LearnerID: "alice", Points: 1})
		require.NoError(t, err)
		return res.Profile
	}

	assert.Equal(t, 0, add().StreakDays)

	f.clock.AddDays(1)
	assert.Equal(t, 1, add().StreakDays)
	assert.Equal(t, 1, add().StreakDays)

	f.clock.AddDays(1)
	p := add()
	assert.Equal(t, 2, p.StreakDays)
	assert.Equal(t, "2024-03-17", p.LastActiveDate)

	f.clock.AddDays(2)
	assert.Equal(t, 1, add().StreakDays)
}

func TestPipeline_TouchUpdatesStreakOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", func(p *learner.Profile) {
		p.Points = 600
		p.StreakDays = 4
		p.LastActiveDate = "2024-03-14"
	})

	tr, err := f.pipeline.Touch(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, tr.Profile.StreakDays)
	assert.Empty(t, tr.NewBadges)
	assert.Equal(t, []shared.EventType{shared.EventStreakUpdated}, f.events.types())

	tr, err = f.pipeline.Touch(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, tr.Profile.StreakDays)
}

func TestPipeline_RetriesVersionConflicts(t *testing.T) {
	clock := timeutil.NewFixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	base := persistence.NewProfileRepository(memory.New(), clock, logger.Nop(), persistence.RepositoryConfig{})
	repo := &conflictingRepo{Repository: base, conflicts: 2}
	f := newFixtureWithRepo(t, clock, base, repo)

	res, err := f.game.Handle(context.Background(), AddGamePointsCommand{LearnerID: "alice", Points: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Profile.Points)
	assert.Equal(t, 3, repo.saves)
	assert.Equal(t, 10, base.Load(context.Background(), "alice").Points)
}

func TestPipeline_ExhaustedRetriesStillReturnProfile(t *testing.T) {
	clock := timeutil.NewFixedClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	base := persistence.NewProfileRepository(memory.New(), clock, logger.Nop(), persistence.RepositoryConfig{})
	repo := &conflictingRepo{Repository: base, conflicts: 100}
	f := newFixtureWithRepo(t, clock, base, repo)

	res, err := f.game.Handle(context.Background(), AddGamePointsCommand{LearnerID: "alice", Points: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Profile.Points)
	assert.Equal(t, 3, repo.saves)
	assert.Equal(t, 0, base.Load(context.Background(), "alice").Points)
}

func TestPipeline_SerializesConcurrentWriters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.game.Handle(ctx, AddGamePointsCommand{LearnerID: "alice", Points: 2})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, f.repo.Load(ctx, "alice").Points)
	assert.Equal(t, 0, f.pipeline.locks.size())
}

func TestPipeline_BadgesNeverShrink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var prev []string
	steps := []func() *learner.Profile{
		func() *learner.Profile {
			r, err := f.quiz.Handle(ctx, RecordQuizResultCommand{LearnerID: "alice", ModuleID: "climate", Score: 4, TotalQuestions: 4})
			require.NoError(t, err)
			return r.Profile
		},
		func() *learner.Profile {
			r, err := f.quiz.Handle(ctx, RecordQuizResultCommand{LearnerID: "alice", ModuleID: "climate", Score: 0, TotalQuestions: 4})
			require.NoError(t, err)
			return r.Profile
		},
		func() *learner.Profile {
			r, err := f.game.Handle(ctx, AddGamePointsCommand{LearnerID: "alice", Points: 400})
			require.NoError(t, err)
			return r.Profile
		},
	}
	for _, step := range steps {
		p := step()
		for _, b := range prev {
			assert.Contains(t, p.Badges, b)
		}
		prev = p.Badges
	}
	assert.Contains(t, prev, "energy-champion")
}
