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
	"golang.org/x/sync/singleflight"

	"quizhub/internal/domain"
)

// QuizLoader fetches a quiz with its questions from the entity store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// versionTTL outlives any quiz entry so an in-flight load always sees a bump.
const versionTTL = 24 * time.Hour

// QuizCache stores whole quizzes as JSON under quiz:{quizID} and falls back to the
// loader on a miss. Redis errors degrade to loader reads instead of failing the request.
// quiz:{quizID}:v counts invalidations; a loaded quiz is written only while it is unchanged.
type QuizCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if quiz, ok := c.lookup(ctx, quizID); ok {
			return quiz, nil
		}

		version, err := c.version(ctx, c.client, quizID)
		if err != nil {
			// without a version the write cannot be guarded, so skip caching
			quiz, err := c.loader.LoadQuiz(ctx, quizID)
			if err != nil {
				return domain.Quiz{}, err
			}
			return quiz, nil
		}

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if c.ttl <= 0 {
			return quiz, nil
		}
		payload, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("encode quiz %s: %w", quizID, err)
		}
		_ = c.store(ctx, quizID, version, payload)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached copy. Writers call it after every change to the quiz or
// its play counters.
func (c *QuizCache) Invalidate(ctx context.Context, quizID string) error {
	c.sf.Forget(quizID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey(quizID))
		pipe.Expire(ctx, c.versionKey(quizID), versionTTL)
		pipe.Del(ctx, c.key(quizID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate quiz %s: %w", quizID, err)
	}
	return nil
}

var errStaleLoad = errors.New("quiz invalidated during load")

// store writes payload only if no Invalidate ran since version was read.
func (c *QuizCache) store(ctx context.Context, quizID, version string, payload []byte) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(quizID), payload, c.ttlWithJitter())
			return nil
		})
		return err
	}, c.versionKey(quizID))
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleLoad
	}
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *QuizCache) version(ctx context.Context, cmd getter, quizID string) (string, error) {
	v, err := cmd.Get(ctx, c.versionKey(quizID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (c *QuizCache) lookup(ctx context.Context, quizID string) (domain.Quiz, bool) {
	payload, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		// unreadable entries are dropped and reloaded
		_ = c.client.Del(ctx, c.key(quizID)).Err()
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCache) key(quizID string) string {
	return "quiz:" + quizID
}

func (c *QuizCache) versionKey(quizID string) string {
	return "quiz:" + quizID + ":v"
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
