package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ecoquest/eco-explorer-hub/internal/application/command"
	"github.com/ecoquest/eco-explorer-hub/internal/application/eventhandler"
	"github.com/ecoquest/eco-explorer-hub/internal/application/query"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/internal/interface/http/handlers"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type recordQuizRequest struct {
	ModuleID       string `json:"moduleId" validate:"required,max=64"`
	Score          int    `json:"score" validate:"min=0,ltefield=TotalQuestions"`
	TotalQuestions int    `json:"totalQuestions" validate:"required,gt=0,max=1000"`
}

type submitQuizRequest struct {
	Answers []int `json:"answers" validate:"max=100,dive,min=-1"`
}

type completeChallengeRequest struct {
	ChallengeID string `json:"challengeId" validate:"required,startswith=challenge-"`
	Points      int    `json:"points" validate:"min=0,max=10000"`
}

type gamePointsRequest struct {
	Points int `json:"points" validate:"min=0,max=10000"`
}

type roundAnswerRequest struct {
	Item        string  `json:"item"`
	Bin         string  `json:"bin"`
	Question    int     `json:"question" validate:"min=0"`
	Choice      int     `json:"choice" validate:"min=-1"`
	SecondsLeft float64 `json:"secondsLeft" validate:"min=0"`
}

type gameRoundRequest struct {
	Answers []roundAnswerRequest `json:"answers" validate:"max=100,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody decodes and validates a JSON request body. The response has
// already been written when it returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is empty")
		default:
			writeJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON: "+err.Error())
		}
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fieldPath(fe)] = describeRule(fe)
			}
			writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", "Request validation failed", details)
			return false
		}
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return false
	}
	return true
}

// fieldPath drops the top-level struct name: "gameRoundRequest.answers[0].choice" -> "answers[0].choice".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "ltefield":
		return "must not exceed totalQuestions"
	case "startswith":
		return "must start with " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// writeUseCaseError maps application errors onto HTTP statuses.
func (s *Server) writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", rootMessage(err))
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", rootMessage(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, r, http.StatusServiceUnavailable, "request_cancelled", "Request was cancelled before it finished")
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// rootMessage returns the human message of the innermost DomainError.
func rootMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func (s *Server) learnerID(r *http.Request) string {
	return handlers.LearnerIDFromRequest(r, s.config.DefaultLearnerID)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":        "Eco Explorer Hub API",
		"version":     s.config.Version,
		"description": "Progress, badges, streaks and daily challenges for young eco learners",
		"endpoints": map[string]string{
			"health":          "/health",
			"progress":        "/api/v1/progress",
			"modules":         "/api/v1/modules",
			"daily_challenge": "/api/v1/daily-challenge",
			"badges":          "/api/v1/badges",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress returns the learner's profile and records today's visit.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetUserProgress.Handle(r.Context(), query.GetUserProgressQuery{
		LearnerID: s.learnerID(r),
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleResetProgress wipes the learner's profile.
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ResetProgress.Handle(r.Context(), command.ResetProgressCommand{
		LearnerID: s.learnerID(r),
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"profile":        query.NewProfileDTO(res.Profile),
		"previousPoints": res.PreviousPoints,
	})
}

// handleGetActivity returns the learner's recent achievements feed.
func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	entries := []eventhandler.JournalEntry{}
	if s.deps.Journal != nil {
		entries = s.deps.Journal.Recent(s.learnerID(r))
	}
	writeJSONWithMeta(w, r, http.StatusOK, entries, &ResponseMeta{TotalCount: len(entries)})
}

// handleCreateLearner issues a new learner ID with a fresh profile.
func (s *Server) handleCreateLearner(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.CreateLearner.Handle(r.Context())
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	w.Header().Set(handlers.LearnerHeader, p.ID)
	writeJSON(w, r, http.StatusCreated, query.NewProfileDTO(p))
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type quizResultResponse struct {
	Profile         query.ProfileDTO `json:"profile"`
	PointsEarned    int              `json:"pointsEarned"`
	NewBadges       []string         `json:"newBadges"`
	IsNewCompletion bool             `json:"isNewCompletion"`
	Perfect         bool             `json:"perfect"`
}

func newQuizResultResponse(res *command.RecordQuizResultResult) quizResultResponse {
	return quizResultResponse{
		Profile:         query.NewProfileDTO(res.Profile),
		PointsEarned:    res.PointsEarned,
		NewBadges:       res.NewBadges,
		IsNewCompletion: res.IsNewCompletion,
		Perfect:         res.Outcome.Perfect,
	}
}

// handleRecordQuizResult records an already graded quiz.
func (s *Server) handleRecordQuizResult(w http.ResponseWriter, r *http.Request) {
	var req recordQuizRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.RecordQuizResult.Handle(r.Context(), command.RecordQuizResultCommand{
		LearnerID:      s.learnerID(r),
		ModuleID:       req.ModuleID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newQuizResultResponse(res))
}

// handleSubmitQuiz grades raw answers on the server and records the result.
func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.SubmitQuizAnswers.Handle(r.Context(), command.SubmitQuizAnswersCommand{
		LearnerID: s.learnerID(r),
		ModuleID:  chi.URLParam(r, "id"),
		Answers:   req.Answers,
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, struct {
		quizResultResponse
		Correct  int                         `json:"correct"`
		Total    int                         `json:"total"`
		Feedback []curriculum.AnswerFeedback `json:"feedback"`
	}{
		quizResultResponse: newQuizResultResponse(res.RecordQuizResultResult),
		Correct:            res.Grade.Correct,
		Total:              res.Grade.Total,
		Feedback:           res.Grade.Feedback,
	})
}

// handleListModules returns the curriculum catalog.
func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.deps.GetModules.Handle(r.Context())
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, modules, &ResponseMeta{TotalCount: len(modules)})
}

// handleGetModule returns one module with its sections and quiz.
func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.GetModules.GetModule(r.Context(), query.GetModuleQuery{ModuleID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDailyChallenge returns today's challenge.
func (s *Server) handleGetDailyChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.GetDailyChallenge.Handle(r.Context(), query.GetDailyChallengeQuery{
		LearnerID: s.learnerID(r),
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// handleCompleteDailyChallenge marks a challenge done.
func (s *Server) handleCompleteDailyChallenge(w http.ResponseWriter, r *http.Request) {
	var req completeChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.CompleteDailyChallenge.Handle(r.Context(), command.CompleteDailyChallengeCommand{
		LearnerID:   s.learnerID(r),
		ChallengeID: req.ChallengeID,
		Points:      req.Points,
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"profile":          query.NewProfileDTO(res.Profile),
		"newBadges":        res.NewBadges,
		"pointsEarned":     res.PointsEarned,
		"alreadyCompleted": res.AlreadyCompleted,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// GAME HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAddGamePoints credits points reported by a mini-game.
func (s *Server) handleAddGamePoints(w http.ResponseWriter, r *http.Request) {
	var req gamePointsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.AddGamePoints.Handle(r.Context(), command.AddGamePointsCommand{
		LearnerID: s.learnerID(r),
		Points:    req.Points,
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"profile":      query.NewProfileDTO(res.Profile),
		"newBadges":    res.NewBadges,
		"pointsEarned": res.PointsEarned,
	})
}

// handleSubmitGameRound scores a round on the server and credits it.
func (s *Server) handleSubmitGameRound(w http.ResponseWriter, r *http.Request) {
	var req gameRoundRequest
	if !decodeBody(w, r, &req) {
		return
	}

	answers := make([]curriculum.RoundAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, curriculum.RoundAnswer{
			Item:        a.Item,
			Bin:         curriculum.Bin(a.Bin),
			Question:    a.Question,
			Choice:      a.Choice,
			SecondsLeft: a.SecondsLeft,
		})
	}

	res, err := s.deps.SubmitGameRound.Handle(r.Context(), command.SubmitGameRoundCommand{
		LearnerID: s.learnerID(r),
		Game:      chi.URLParam(r, "game"),
		Answers:   answers,
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"profile":      query.NewProfileDTO(res.Profile),
		"newBadges":    res.NewBadges,
		"pointsEarned": res.PointsEarned,
		"correct":      res.Score.Correct,
		"attempts":     res.Score.Attempts,
		"bestStreak":   res.Score.BestStreak,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetBadges returns the badge catalog annotated for the learner.
func (s *Server) handleGetBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.deps.GetAllBadges.Handle(r.Context(), query.GetAllBadgesQuery{
		LearnerID: s.learnerID(r),
	})
	if err != nil {
		s.writeUseCaseError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, badges, &ResponseMeta{TotalCount: len(badges)})
}
