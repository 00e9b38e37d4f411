package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// GET /api/results -> oldest first
func ListResultsHandler(results exam.ResultStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		list, err := results.ListResults(r.Context(), uid)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type createResultReq struct {
	TestID         string `json:"testId" validate:"required"`
	Score          int    `json:"score" validate:"min=0,max=100"`
	CorrectCount   int    `json:"correctCount" validate:"min=0"`
	TotalQuestions int    `json:"totalQuestions" validate:"min=1"`
}

// POST /api/results
// Direct recording for clients that finished an attempt while offline.
func CreateResultHandler(results exam.ResultStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req createResultReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		if req.CorrectCount > req.TotalQuestions {
			writeError(w, log, &exam.ValidationError{Field: "correctCount", Message: "exceeds totalQuestions"})
			return
		}
		res, err := results.CreateResult(r.Context(), uid, exam.Result{
			TestID:         req.TestID,
			Score:          req.Score,
			CorrectCount:   req.CorrectCount,
			TotalQuestions: req.TotalQuestions,
			CompletedAt:    time.Now().UnixMilli(),
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// DELETE /api/results/{resultID}
func DeleteResultHandler(results exam.ResultStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "resultID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		if err := results.DeleteResult(r.Context(), uid, id); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type summaryView struct {
	exam.Summary
	Chart []exam.ChartPoint `json:"chart"`
}

// GET /api/results/summary
func ResultsSummaryHandler(results exam.ResultStore, window int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		list, err := results.ListResults(r.Context(), uid)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryView{
			Summary: exam.Summarize(list),
			Chart:   exam.ChartSeries(list, window),
		})
	}
}
