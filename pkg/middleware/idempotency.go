package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/gatherly/rsvp-admission/pkg/response"
)

const (
	// IdempotencyKeyHeader names the client-supplied retry key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ContextKeyIdempotencyKey is the gin context key holding the active key
	ContextKeyIdempotencyKey = "idempotency_key"
	// DefaultIdempotencyTTL keeps completed records long enough to absorb
	// client retry storms around an admission decision
	DefaultIdempotencyTTL = 5 * time.Minute

	idempotencyKeyPrefix = "idempotency:"
)

type recordState string

const (
	stateProcessing recordState = "processing"
	stateCompleted  recordState = "completed"
)

// idempotencyRecord is the Redis value for one key: first a processing
// marker claimed with SETNX, then the captured response for replay.
type idempotencyRecord struct {
	Key          string      `json:"key"`
	State        recordState `json:"state"`
	RequestHash  string      `json:"request_hash"`
	ResponseCode int         `json:"response_code"`
	ResponseBody string      `json:"response_body"`
	CreatedAt    time.Time   `json:"created_at"`
}

// RedisClient is the slice of go-redis the middleware needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// IdempotencyConfig tunes the middleware.
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight record blocks duplicates
	ProcessingTTL time.Duration
}

// DefaultIdempotencyConfig returns the production settings.
func DefaultIdempotencyConfig(redis RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         redis,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: 60 * time.Second,
	}
}

// IdempotencyMiddleware replays the first response to retried requests
// carrying the same X-Idempotency-Key. The key is optional; guest flows
// without one are processed normally. Reusing a key with a different
// request body is rejected rather than replayed.
func IdempotencyMiddleware(cfg *IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultIdempotencyTTL
	}
	if cfg.ProcessingTTL == 0 {
		cfg.ProcessingTTL = 60 * time.Second
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		c.Set(ContextKeyIdempotencyKey, key)

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		hash := fingerprint(c, body)
		redisKey := idempotencyKeyPrefix + key
		ctx := c.Request.Context()

		prior, err := loadRecord(ctx, cfg.Redis, redisKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			// Redis outage: admit the request rather than block writes
			c.Next()
			return
		}
		if prior != nil {
			replay(c, prior, hash)
			return
		}

		record := &idempotencyRecord{
			Key:         key,
			State:       stateProcessing,
			RequestHash: hash,
			CreatedAt:   time.Now(),
		}
		if !claim(ctx, cfg.Redis, redisKey, record, cfg.ProcessingTTL) {
			// Lost the claim race, the winner's record decides
			if prior, _ = loadRecord(ctx, cfg.Redis, redisKey); prior != nil {
				replay(c, prior, hash)
				return
			}
		}

		rw := &captureWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = rw

		c.Next()

		record.State = stateCompleted
		record.ResponseCode = rw.status
		record.ResponseBody = rw.body.String()
		if data, err := json.Marshal(record); err == nil {
			cfg.Redis.Set(ctx, redisKey, string(data), cfg.TTL)
		}
	}
}

// replay answers from a prior record: mismatched fingerprints are rejected,
// in-flight requests conflict, completed ones return the stored response.
func replay(c *gin.Context, record *idempotencyRecord, hash string) {
	switch {
	case record.RequestHash != hash:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
			response.NewError("IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with different request"))
	case record.State == stateProcessing:
		c.AbortWithStatusJSON(http.StatusConflict,
			response.NewError("REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed"))
	default:
		c.Data(record.ResponseCode, "application/json", []byte(record.ResponseBody))
		c.Abort()
	}
}

// fingerprint binds the key to method, path, caller, and body so one key
// cannot be replayed across different admission requests.
func fingerprint(c *gin.Context, body []byte) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte(c.Request.URL.Path))
	if userID, ok := GetUserID(c); ok {
		h.Write([]byte(userID))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func loadRecord(ctx context.Context, client RedisClient, key string) (*idempotencyRecord, error) {
	raw, err := client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func claim(ctx context.Context, client RedisClient, key string, record *idempotencyRecord, ttl time.Duration) bool {
	data, err := json.Marshal(record)
	if err != nil {
		return false
	}
	ok, err := client.SetNX(ctx, key, string(data), ttl).Result()
	return err == nil && ok
}

// captureWriter tees the response so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
