package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/importer"
)

var errTestNotFound = errors.New("test not found")

// GET /api/tests
func ListTestsHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		list, err := repo.ListTests(r.Context(), uid)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/tests/{testID} -> questions ordered by id
func GetTestHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		qs, err := repo.ListQuestions(r.Context(), uid, pathParam(r, "testID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		if len(qs) == 0 {
			writeError(w, log, errTestNotFound)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

type importReq struct {
	Filename string          `json:"filename" validate:"required"`
	Content  json.RawMessage `json:"content" validate:"required"`
}

// POST /api/tests/import {filename, content: [...]}
func ImportTestHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req importReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		testID := importer.TestIDFromFilename(req.Filename)
		if testID == "" {
			writeError(w, log, &exam.ValidationError{Field: "filename", Message: "is required"})
			return
		}
		qs, err := importer.Parse(req.Content)
		if err != nil {
			writeError(w, log, err)
			return
		}
		n, err := repo.ImportQuestions(r.Context(), uid, testID, qs)
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("question set imported", zap.String("test_id", testID), zap.Int64("user_id", uid), zap.Int("questions", n))
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "count": n, "testId": testID})
	}
}

// DELETE /api/tests/{testID}
func DeleteTestHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if _, err := repo.DeleteTest(r.Context(), uid, pathParam(r, "testID")); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type renameReq struct {
	Name string `json:"name" validate:"required"`
}

// PUT /api/tests/{testID}/rename {name}
func RenameTestHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req renameReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		to := strings.TrimSpace(req.Name)
		n, err := repo.RenameTest(r.Context(), uid, pathParam(r, "testID"), to)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if n == 0 {
			writeError(w, log, errTestNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": to, "count": n})
	}
}

type updateQuestionReq struct {
	QuestionText  *string           `json:"questionText"`
	Answers       map[string]string `json:"answers"`
	CorrectAnswer *string           `json:"correctAnswer"`
	Category      *string           `json:"category"`
}

// PUT /api/questions/{questionID}
// The merged question is validated before anything is written.
func UpdateQuestionHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		var req updateQuestionReq
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}

		cur, err := repo.GetQuestion(r.Context(), uid, id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if req.QuestionText != nil {
			cur.QuestionText = *req.QuestionText
		}
		if req.Answers != nil {
			cur.Answers = req.Answers
		}
		if req.CorrectAnswer != nil {
			cur.CorrectAnswer = *req.CorrectAnswer
		}
		if err := importer.Validate(cur.QuestionText, cur.Answers, cur.CorrectAnswer); err != nil {
			writeError(w, log, err)
			return
		}

		q, err := repo.UpdateQuestion(r.Context(), uid, id, exam.QuestionPatch{
			QuestionText:  req.QuestionText,
			Answers:       req.Answers,
			CorrectAnswer: req.CorrectAnswer,
			Category:      req.Category,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /api/questions/{questionID}
func DeleteQuestionHandler(repo exam.QuestionRepository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := owner(r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		if err := repo.DeleteQuestion(r.Context(), uid, id); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
