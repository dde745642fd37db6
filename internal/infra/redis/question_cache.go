package redis

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"rextro-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuestionCache caches correct options in Redis (hash per quiz) and falls back
// to a loader on cache miss.
// Options are stored as: HSET quiz:{quizID}:answers {questionID} {correctOption}
// The count is stored as: SET  quiz:{quizID}:count   {questions}
// The count key doubles as the "quiz is cached" marker, so quizzes without
// questions are cached too.
type QuestionCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FindQuestion(ctx context.Context, quizID int64, questionID string) (domain.Question, error) {
	option, err := c.client.HGet(ctx, answersKey(quizID), questionID).Result()
	if err == nil {
		return domain.Question{ID: questionID, QuizID: quizID, CorrectOption: option}, nil
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, err
	}

	cached, err := c.client.Exists(ctx, countKey(quizID)).Result()
	if err != nil {
		return domain.Question{}, err
	}
	if cached > 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}

	quiz, err := c.fill(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, err
	}
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			q.QuizID = quizID
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (c *QuestionCache) CountQuestions(ctx context.Context, quizID int64) (int, error) {
	n, err := c.client.Get(ctx, countKey(quizID)).Int()
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, err
	}
	quiz, err := c.fill(ctx, quizID)
	if err != nil {
		return 0, err
	}
	return len(quiz.Questions), nil
}

// Invalidate removes the cached copy of a quiz.
func (c *QuestionCache) Invalidate(ctx context.Context, quizID int64) error {
	return c.client.Del(ctx, answersKey(quizID), countKey(quizID)).Err()
}

func (c *QuestionCache) fill(ctx context.Context, quizID int64) (domain.Quiz, error) {
	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := c.ttlWithJitter()
		_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, answersKey(quizID))
			for _, q := range quiz.Questions {
				pipe.HSet(ctx, answersKey(quizID), q.ID, q.CorrectOption)
			}
			pipe.Set(ctx, countKey(quizID), len(quiz.Questions), ttl)
			if ttl > 0 && len(quiz.Questions) > 0 {
				pipe.Expire(ctx, answersKey(quizID), ttl)
			}
			return nil
		})
		// A failed cache write only costs another load on the next miss.
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func answersKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":answers"
}

func countKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":count"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
