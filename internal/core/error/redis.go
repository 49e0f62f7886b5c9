package errx

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisErrorMessage describes Redis related failures.
const RedisErrorMessage = "redis operation failed"

// WrapRedis maps Redis errors to the unified Error type. A missing key is not an error.
func WrapRedis(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return New(KindConnectivity, err, RedisErrorMessage)
}
