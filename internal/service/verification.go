package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"nutriscan/internal/cache"
	"nutriscan/internal/models"
	"nutriscan/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// CodeVerifier issues and checks one-time login codes for phone logins.
type CodeVerifier interface {
	Issue(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) (bool, error)
}

// FixedCodeVerifier accepts a single configured code for every phone.
// It never sends anything and is meant for development and tests.
type FixedCodeVerifier struct {
	Code string
}

// NewFixedCodeVerifier returns a verifier that accepts only code.
func NewFixedCodeVerifier(code string) *FixedCodeVerifier {
	return &FixedCodeVerifier{Code: code}
}

func (v *FixedCodeVerifier) Issue(context.Context, string) error { return nil }

func (v *FixedCodeVerifier) Verify(_ context.Context, _ string, code string) (bool, error) {
	if v.Code == "" || code == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) == 1, nil
}

// CodeSender delivers an issued code to the phone's owner.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogCodeSender writes codes to the application log instead of an SMS gateway.
type LogCodeSender struct{}

func (LogCodeSender) Send(ctx context.Context, phone, code string) error {
	observability.GlobalLogger.InfoContext(ctx, "login code issued",
		slog.String("phone", maskPhone(phone)),
		slog.String("code", code),
	)
	return nil
}

const (
	codeDigits          = 6
	defaultMaxAttempts  = 5
	defaultCodeCooldown = time.Minute

	codeHashField     = "hash"
	codeAttemptsField = "attempts"
)

// RedisCodeVerifier keeps a bcrypt hash of the issued code in Redis with a TTL.
// A code is consumed by the first successful Verify and discarded after too many misses.
type RedisCodeVerifier struct {
	rdb         *redis.Client
	sender      CodeSender
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
}

// NewRedisCodeVerifier keeps codes for ttl. A nil sender logs codes instead of sending them.
func NewRedisCodeVerifier(rdb *redis.Client, sender CodeSender, ttl time.Duration) *RedisCodeVerifier {
	if sender == nil {
		sender = LogCodeSender{}
	}
	return &RedisCodeVerifier{
		rdb:         rdb,
		sender:      sender,
		ttl:         ttl,
		cooldown:    defaultCodeCooldown,
		maxAttempts: defaultMaxAttempts,
	}
}

func (v *RedisCodeVerifier) Issue(ctx context.Context, phone string) error {
	if v.rdb == nil {
		return models.NewInternalError(fmt.Errorf("redis unavailable"))
	}

	fresh, err := v.rdb.SetNX(ctx, cache.LoginCodeCooldownKey(phone), 1, v.cooldown).Result()
	if err != nil {
		return models.NewInternalError(err)
	}
	if !fresh {
		return models.NewValidationError("A code was sent recently, please wait before requesting another")
	}

	code, err := randomCode(codeDigits)
	if err != nil {
		return models.NewInternalError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	key := cache.LoginCodeKey(phone)
	_, err = v.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, codeHashField, string(hash), codeAttemptsField, 0)
		pipe.Expire(ctx, key, v.ttl)
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}

	return v.sender.Send(ctx, phone, code)
}

// claimAttempt counts one verification attempt against an existing code and
// returns its hash. It returns nil when the code is gone or, after deleting it,
// when the attempt budget (ARGV[3]) is spent.
var claimAttempt = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
local attempts = redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
if attempts > tonumber(ARGV[3]) then
	redis.call("DEL", KEYS[1])
	return false
end
return redis.call("HGET", KEYS[1], ARGV[2])
`)

func (v *RedisCodeVerifier) Verify(ctx context.Context, phone, code string) (bool, error) {
	if v.rdb == nil {
		return false, models.NewInternalError(fmt.Errorf("redis unavailable"))
	}
	key := cache.LoginCodeKey(phone)

	// Counting the attempt and reading the hash happen in one script so an
	// expiring key is never recreated without a TTL.
	hash, err := claimAttempt.Run(ctx, v.rdb, []string{key},
		codeAttemptsField, codeHashField, v.maxAttempts).Text()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return false, nil
	}

	// Whoever deletes the key owns the code.
	removed, err := v.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return removed == 1, nil
}

func randomCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
