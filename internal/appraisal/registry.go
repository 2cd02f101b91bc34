package appraisal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/metrics"
	"watch-registration/internal/models"
)

const (
	cacheKeyPrefix = "appraisal:"

	appraisalQuery = `SELECT authenticated, estimated_value_usd, certifying_authority, revoked FROM watch_appraisals WHERE serial = $1`
)

// RegistryValidator checks serials against the watch_appraisals table and
// caches verdicts in Redis. Unknown, revoked or unreadable serials are
// rejected.
type RegistryValidator struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewRegistryValidator creates a validator. rdb may be nil to disable caching.
func NewRegistryValidator(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *RegistryValidator {
	return &RegistryValidator{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "appraisal-registry"}),
	}
}

func (v *RegistryValidator) Validate(ctx context.Context, serial string) models.AuthenticityVerdict {
	cacheKey := cacheKeyPrefix + serial

	if v.redis != nil {
		if val, err := v.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached models.AuthenticityVerdict
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				metrics.AppraisalCacheLookups.WithLabelValues("hit").Inc()
				return cached
			}
		} else if !errors.Is(err, redis.Nil) {
			v.logger.Warn("Appraisal cache read failed", map[string]interface{}{
				"serial": serial,
				"error":  err.Error(),
			})
		}
		metrics.AppraisalCacheLookups.WithLabelValues("miss").Inc()
	}

	var (
		verdict   models.AuthenticityVerdict
		authority sql.NullString
		revoked   bool
	)
	err := v.db.QueryRowContext(ctx, appraisalQuery, serial).Scan(
		&verdict.Authenticated, &verdict.EstimatedValueUSD, &authority, &revoked,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		v.logger.Info("Serial not found in appraisal registry", map[string]interface{}{
			"serial": serial,
		})
		// not cached: a serial registered later must be found
		return models.AuthenticityVerdict{Authenticated: false}
	case err != nil:
		v.logger.Error("Appraisal registry lookup failed", map[string]interface{}{
			"serial": serial,
			"error":  err.Error(),
		})
		// not cached: the next invocation retries the lookup
		return models.AuthenticityVerdict{Authenticated: false}
	default:
		verdict.CertifyingAuthority = authority.String
		if revoked {
			verdict.Authenticated = false
		}
	}

	if v.redis != nil {
		data, _ := json.Marshal(verdict)
		if err := v.redis.Set(ctx, cacheKey, data, v.cacheTTL).Err(); err != nil {
			v.logger.Warn("Appraisal cache write failed", map[string]interface{}{
				"serial": serial,
				"error":  err.Error(),
			})
		}
	}

	return verdict
}
