package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrServerNotRunning     = errors.New("server not running")
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerStartFailed    = errors.New("server start failed")
	ErrHandlerIsNil         = errors.New("handler is nil")
	ErrPathNotFound         = errors.New("path not found")
)

var (
	ErrMiddlewareNotFound    = errors.New("middleware not found")
	ErrMiddlewareInvalidType = errors.New("middleware invalid type")
)

var (
	ErrCacheKeyEmpty         = errors.New("cache key empty")
	ErrCacheConnectionFailed = errors.New("cache connection failed")
	ErrCacheTypeUnknown      = errors.New("cache type unknown")
	ErrCacheOperationFailed  = errors.New("cache operation failed")
	ErrCacheEntryInvalid     = errors.New("cache entry invalid")
)

var (
	ErrStoreNameEmpty       = errors.New("store name empty")
	ErrStoreTypeUnknown     = errors.New("store type unknown")
	ErrStoreOpenFailed      = errors.New("store open failed")
	ErrStoreOperationFailed = errors.New("store operation failed")
	ErrStoreAutoloadInvalid = errors.New("store autoload invalid")
	ErrStoreRecordCorrupted = errors.New("store record corrupted")
	ErrStoreNotRunning      = errors.New("store not running")
)

var (
	ErrSerializationFailed = errors.New("serialization failed")
	ErrDecodeFailed        = errors.New("decode failed")
)

var (
	ErrRequestConcluded = errors.New("request already concluded")
	ErrInvalidReferer   = errors.New("invalid referer")
)

var (
	ErrCronJobNotFound       = errors.New("cron job not found")
	ErrCronJobExists         = errors.New("cron job exists")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronJobFailed         = errors.New("cron job failed")
	ErrCronJobTimeout        = errors.New("cron job timeout")
	ErrCronIsRunning         = errors.New("cron is running")
	ErrCronSchedulerStopped  = errors.New("cron scheduler stopped")
)

var (
	ErrMetricsTypeUnknown   = errors.New("metrics type unknown")
	ErrMetricsConfigInvalid = errors.New("metrics config invalid")
)

var (
	ErrHealthCheckFailed  = errors.New("health check failed")
	ErrHealthCheckTimeout = errors.New("health check timeout")
)

var (
	ErrLogFileIsEmpty      = errors.New("log file is empty")
	ErrLogFileWrongFormat  = errors.New("log file wrong format")
	ErrLoggerTypeUnknown   = errors.New("logger type unknown")
	ErrLoggerConfigInvalid = errors.New("logger config invalid")
)

var (
	ErrServiceIsRunning     = errors.New("service is running")
	ErrServiceIsNotRunning  = errors.New("service is not running")
	ErrComponentStartFailed = errors.New("component start failed")
	ErrComponentStopFailed  = errors.New("component stop failed")
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInternalError    = errors.New("internal error")
	ErrInvalidState     = errors.New("invalid state")
)

// Errorf prefixes baseErr to the formatted message. The format may use %w so
// the underlying cause stays reachable through errors.Is as well.
func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{baseErr}, args...)...)
}

// WrapError returns nil when err is nil so it can wrap a call result directly.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewError(message string) error {
	return errors.New(message)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
