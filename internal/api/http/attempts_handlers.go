package http

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// GET /api/attempts?status=in_progress&testId=...&limit=50
func ListAttemptsHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		if status != "" && status != exam.StatusInProgress && status != exam.StatusCompleted {
			writeError(w, log, &exam.ValidationError{Field: "status", Message: "must be one of in_progress completed"})
			return
		}
		list, err := engine.List(r.Context(), uid, exam.AttemptListOpts{
			Status: status,
			TestID: strings.TrimSpace(r.URL.Query().Get("testId")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 0),
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type createAttemptReq struct {
	TestID         string  `json:"testId" validate:"required"`
	QuestionOrder  []int64 `json:"questionOrder"`
	TotalQuestions int     `json:"totalQuestions"`
}

// POST /api/attempts {testId, questionOrder, totalQuestions}
func CreateAttemptHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req createAttemptReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		a, err := engine.Create(r.Context(), uid, req.TestID, req.QuestionOrder, req.TotalQuestions)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

type startAttemptReq struct {
	TestID  string `json:"testId" validate:"required"`
	Shuffle bool   `json:"shuffle"`
}

type sessionView struct {
	Attempt      exam.Attempt    `json:"attempt"`
	Questions    []exam.Question `json:"questions"`
	CurrentIndex int             `json:"currentIndex"`
	Dropped      int             `json:"dropped"`
}

func viewOf(s *exam.Session) sessionView {
	a := s.Snapshot()
	qs := s.Questions()
	return sessionView{Attempt: a, Questions: qs, CurrentIndex: a.CurrentIndex, Dropped: len(a.QuestionOrder) - len(qs)}
}

// POST /api/attempts/start {testId, shuffle}
func StartAttemptHandler(engine *exam.Engine, shuffle func([]int64), log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req startAttemptReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		var sh func([]int64)
		if req.Shuffle {
			sh = shuffle
		}
		s, err := engine.Start(r.Context(), uid, req.TestID, sh)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(s))
	}
}

// GET /api/attempts/{attemptID}
func GetAttemptHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "attemptID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		a, err := engine.Get(r.Context(), uid, id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

type updateAttemptReq struct {
	CurrentIndex *int              `json:"currentIndex"`
	Answers      map[string]string `json:"answers"`
	Status       *string           `json:"status" validate:"omitempty,oneof=in_progress completed"`
}

// PUT /api/attempts/{attemptID}
// Autosave target. correctCount and score are ignored; they are only ever
// computed by finishing.
func UpdateAttemptHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "attemptID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req updateAttemptReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		a, err := engine.Update(r.Context(), uid, id, exam.AttemptPatch{
			CurrentIndex: req.CurrentIndex,
			Answers:      req.Answers,
			Status:       req.Status,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// DELETE /api/attempts/{attemptID}
func DeleteAttemptHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "attemptID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		if err := engine.Delete(r.Context(), uid, id); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/attempts/{attemptID}/resume
// 404/410 carry restart=true: the client drops its resume reference.
func ResumeAttemptHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "attemptID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		s, err := engine.Resume(r.Context(), uid, id)
		if err != nil {
			if _, ok := exam.RecoveryNotice(err); ok {
				log.Info("resume fell back to fresh start", zap.Int64("attempt_id", id), zap.Error(err))
			}
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(s))
	}
}

// POST /api/attempts/{attemptID}/finish
func FinishAttemptHandler(engine *exam.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "attemptID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		a, res, err := engine.Finish(r.Context(), uid, id)
		if err != nil {
			if errors.Is(err, exam.ErrAttemptCompleted) {
				log.Info("duplicate finish rejected", zap.Int64("attempt_id", id))
			}
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempt": a, "result": res})
	}
}
