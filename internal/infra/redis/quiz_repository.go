package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// QuizSource is the durable quiz library behind the cache.
type QuizSource interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quizID string, quiz domain.Quiz) error
}

// QuizRepository caches library quizzes in Redis and falls back to the source on a miss.
// Each quiz is stored as exchange JSON: SET {prefix}:quiz:{quizID} {json} EX ttl
type QuizRepository struct {
	client redis.UniversalClient
	source QuizSource
	prefix string
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client redis.UniversalClient, source QuizSource, prefix string, ttl time.Duration) *QuizRepository {
	if prefix == "" {
		prefix = "livequiz"
	}
	return &QuizRepository{
		client: client,
		source: source,
		prefix: prefix,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.source.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.fill(ctx, quizID, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (r *QuizRepository) SaveQuiz(ctx context.Context, quizID string, quiz domain.Quiz) error {
	if err := r.source.SaveQuiz(ctx, quizID, quiz); err != nil {
		return err
	}
	r.fill(ctx, quizID, quiz)
	return nil
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Ctx(ctx).Warn().Err(err).Str("quiz_id", quizID).Msg("quiz cache: read failed")
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("quiz_id", quizID).Msg("quiz cache: corrupt entry")
		return domain.Quiz{}, false
	}
	return quiz, true
}

// fill is best effort: a cache write failure only costs a later reload.
func (r *QuizRepository) fill(ctx context.Context, quizID string, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("quiz_id", quizID).Msg("quiz cache: encode failed")
		return
	}
	if err := r.client.Set(ctx, r.key(quizID), raw, r.ttlWithJitter()).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(fmt.Errorf("set: %w", err)).Str("quiz_id", quizID).Msg("quiz cache: write failed")
	}
}

func (r *QuizRepository) key(quizID string) string {
	return r.prefix + ":quiz:" + quizID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
