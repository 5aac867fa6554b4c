package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
)

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// NormalizeBarcode trims and upper-cases a barcode for storage and
// comparison. Barcodes are stored upper-case; lookups stay case-exact.
func NormalizeBarcode(barcode string) string {
	return strings.ToUpper(strings.TrimSpace(barcode))
}

// ParseLooseBool maps the accepted affirmative tokens to true; anything
// else (including empty) is false. Token set is fixed: YES, TRUE, 1, Y.
func ParseLooseBool(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "YES", "TRUE", "1", "Y":
		return true
	default:
		return false
	}
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

// SyncLock obtains the cross-instance lock guarding bulk reconcile and
// bulk import runs. Returns a release func on success. The lock is a
// best-effort optimization: when Redis is unavailable the caller
// proceeds unlocked, relying on the per-item idempotency guards.
func SyncLock(ctx context.Context, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized; proceeding unlocked", lockType, errors.New("redis lock is nil"))
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("lock:%s", lockType)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock", lockKey, err)
		return nil, errors.New("another " + lockType + " run is in progress")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock", lockKey, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
