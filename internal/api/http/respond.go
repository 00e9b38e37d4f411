package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-practice/internal/auth/middleware"
	"github.com/mind-engage/mindengage-practice/internal/exam"
)

var errUnauthenticated = errors.New("unauthenticated")

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Restart bool   `json:"restart,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names in errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 without details.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *exam.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: ve.Message, Field: ve.Field, Code: "validation"})
	case errors.Is(err, exam.ErrAttemptNotFound):
		msg, _ := exam.RecoveryNotice(err)
		writeJSON(w, http.StatusNotFound, errorBody{Message: msg, Code: "attempt_not_found", Restart: true})
	case errors.Is(err, exam.ErrQuestionsGone):
		msg, _ := exam.RecoveryNotice(err)
		writeJSON(w, http.StatusGone, errorBody{Message: msg, Code: "questions_gone", Restart: true})
	case errors.Is(err, exam.ErrAttemptCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Message: err.Error(), Code: "attempt_completed"})
	case errors.Is(err, exam.ErrQuestionNotFound), errors.Is(err, exam.ErrResultNotFound), errors.Is(err, errTestNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: err.Error(), Code: "not_found"})
	case errors.Is(err, auth.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, errorBody{Message: err.Error(), Field: "username", Code: "username_taken"})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, errUnauthenticated), errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: err.Error(), Code: "unauthorized"})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal error"})
	}
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &exam.ValidationError{Field: "body", Message: "bad json"}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &exam.ValidationError{Field: fe.Field(), Message: describe(fe)}
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}

func owner(r *http.Request) (int64, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return 0, errUnauthenticated
	}
	return p.UserID, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &exam.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

// pathParam returns an unescaped URL parameter; set ids are file names.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
