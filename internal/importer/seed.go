package importer

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/storage"
)

// Seed imports every *.json file of src as a shared question set when the
// question store is empty. Broken files are logged and skipped.
func Seed(ctx context.Context, repo exam.QuestionRepository, src storage.SeedSource, log *zap.Logger) (int, error) {
	log = log.Named("seed")
	n, err := repo.CountQuestions(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debug("question store not empty, skipping seed", zap.Int("questions", n))
		return 0, nil
	}

	keys, err := src.List(".json")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, key := range keys {
		qs, err := readSet(src, key)
		if err != nil {
			log.Warn("seed file skipped", zap.String("file", key), zap.Error(err))
			continue
		}
		count, err := repo.ImportQuestions(ctx, exam.SharedOwner, key, qs)
		if err != nil {
			return total, err
		}
		log.Info("seeded question set", zap.String("test_id", key), zap.Int("questions", count))
		total += count
	}
	return total, nil
}

func readSet(src storage.SeedSource, key string) ([]exam.Question, error) {
	rc, err := src.Get(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
