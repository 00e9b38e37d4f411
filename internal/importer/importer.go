// Package importer turns question-set files into questions and validates
// answer maps at the question-management boundary.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

const DefaultCategory = "General"

// RawQuestion is one entry of an import file.
type RawQuestion struct {
	Pregunta          string            `json:"pregunta" validate:"required"`
	Respuestas        map[string]string `json:"respuestas" validate:"min=2,max=8,dive,keys,oneof=A B C D E F G H,endkeys,required"`
	RespuestaCorrecta string            `json:"respuesta_correcta" validate:"required,oneof=A B C D E F G H"`
	Oposicion         string            `json:"oposicion"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes a JSON array of RawQuestion. One invalid entry rejects the
// whole file.
func Parse(data []byte) ([]exam.Question, error) {
	var raw []RawQuestion
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, &exam.ValidationError{Field: "content", Message: "expected a JSON array of questions: " + err.Error()}
	}
	return Convert(raw)
}

func Convert(raw []RawQuestion) ([]exam.Question, error) {
	if len(raw) == 0 {
		return nil, &exam.ValidationError{Field: "content", Message: "no valid questions found"}
	}
	out := make([]exam.Question, 0, len(raw))
	for i, r := range raw {
		q := exam.Question{
			QuestionText:  strings.TrimSpace(r.Pregunta),
			Answers:       make(map[string]string, len(r.Respuestas)),
			CorrectAnswer: strings.TrimSpace(r.RespuestaCorrecta),
			Category:      strings.TrimSpace(r.Oposicion),
		}
		for k, v := range r.Respuestas {
			q.Answers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		if q.Category == "" {
			q.Category = DefaultCategory
		}
		if err := Validate(q.QuestionText, q.Answers, q.CorrectAnswer); err != nil {
			var ve *exam.ValidationError
			if errors.As(err, &ve) {
				return nil, &exam.ValidationError{Field: fmt.Sprintf("content[%d].%s", i, ve.Field), Message: ve.Message}
			}
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Validate checks one question: non-empty text, 2..8 answers keyed A..H and
// a correct answer present in the map.
func Validate(text string, answers map[string]string, correct string) error {
	r := RawQuestion{Pregunta: strings.TrimSpace(text), Respuestas: answers, RespuestaCorrecta: correct}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}
	if _, ok := answers[correct]; !ok {
		return &exam.ValidationError{Field: "respuesta_correcta", Message: fmt.Sprintf("%q is not one of the answers", correct)}
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	field := "pregunta"
	switch fe.StructField() {
	case "Respuestas":
		field = "respuestas"
	case "RespuestaCorrecta":
		field = "respuesta_correcta"
	}
	if strings.HasPrefix(fe.Namespace(), "RawQuestion.Respuestas[") {
		field = "respuestas"
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "min":
		msg = "needs at least " + fe.Param() + " answers"
	case "max":
		msg = "allows at most " + fe.Param() + " answers"
	case "oneof":
		msg = fmt.Sprintf("%v is not a letter A-H", fe.Value())
	default:
		msg = "failed " + fe.Tag()
	}
	return &exam.ValidationError{Field: field, Message: msg}
}

// TestIDFromFilename derives the set key from an uploaded file name.
func TestIDFromFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
