package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"trivia-rooms/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches question banks from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// BankRepository caches whole banks as JSON in Redis and falls back to the
// loader on a miss. The full document is cached (not just answers) because
// the engine pushes prompts and options to players itself.
// Layout: SET bank:{bankID}:data {json} EX ttl
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	key := r.dataKey(bankID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var bank domain.QuestionBank
		if err := json.Unmarshal(raw, &bank); err == nil {
			return bank, nil
		}
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var bank domain.QuestionBank
			if err := json.Unmarshal(raw, &bank); err == nil {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		if err := bank.Validate(); err != nil {
			return domain.QuestionBank{}, err
		}

		if raw, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *BankRepository) dataKey(bankID string) string {
	return "bank:" + bankID + ":data"
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
