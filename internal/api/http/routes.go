package http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-practice/internal/auth/middleware"
	"github.com/mind-engage/mindengage-practice/internal/exam"
)

type Deps struct {
	Engine      *exam.Engine
	Questions   exam.QuestionRepository
	Results     exam.ResultStore
	Users       *auth.UserStore
	Auth        *auth.AuthService
	Shuffle     func([]int64)
	ChartWindow int
	Log         *zap.Logger
}

// Mount registers the /api routes on r.
func Mount(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r.Post("/api/auth/register", RegisterHandler(d.Users, d.Auth, log))
	r.Post("/api/auth/login", LoginHandler(d.Users, d.Auth, log))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.Get("/api/auth/me", MeHandler(d.Users, log))

		// question sets
		pr.Get("/api/tests", ListTestsHandler(d.Questions, log))
		pr.Post("/api/tests/import", ImportTestHandler(d.Questions, log))
		pr.Get("/api/tests/{testID}", GetTestHandler(d.Questions, log))
		pr.Delete("/api/tests/{testID}", DeleteTestHandler(d.Questions, log))
		pr.Put("/api/tests/{testID}/rename", RenameTestHandler(d.Questions, log))
		pr.Put("/api/questions/{questionID}", UpdateQuestionHandler(d.Questions, log))
		pr.Delete("/api/questions/{questionID}", DeleteQuestionHandler(d.Questions, log))

		// attempts
		pr.Get("/api/attempts", ListAttemptsHandler(d.Engine, log))
		pr.Post("/api/attempts", CreateAttemptHandler(d.Engine, log))
		pr.Post("/api/attempts/start", StartAttemptHandler(d.Engine, d.Shuffle, log))
		pr.Get("/api/attempts/{attemptID}", GetAttemptHandler(d.Engine, log))
		pr.Put("/api/attempts/{attemptID}", UpdateAttemptHandler(d.Engine, log))
		pr.Delete("/api/attempts/{attemptID}", DeleteAttemptHandler(d.Engine, log))
		pr.Get("/api/attempts/{attemptID}/resume", ResumeAttemptHandler(d.Engine, log))
		pr.Post("/api/attempts/{attemptID}/finish", FinishAttemptHandler(d.Engine, log))

		// history
		pr.Get("/api/results", ListResultsHandler(d.Results, log))
		pr.Post("/api/results", CreateResultHandler(d.Results, log))
		pr.Get("/api/results/summary", ResultsSummaryHandler(d.Results, d.ChartWindow, log))
		pr.Delete("/api/results/{resultID}", DeleteResultHandler(d.Results, log))
	})
}
