package health

import (
	"context"

	"github.com/saiset-co/sai-campaigns/types"
)

// Pinger is satisfied by both types.ProcessCache and types.DurableStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports unhealthy when the backend's Ping fails.
func PingChecker(kind string, backend Pinger) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		if err := backend.Ping(ctx); err != nil {
			return types.HealthCheck{
				Status:  types.StatusUnhealthy,
				Message: types.WrapError(err, types.ErrHealthCheckFailed.Error()).Error(),
				Details: map[string]interface{}{"backend": kind},
			}
		}

		return types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: map[string]interface{}{"backend": kind},
		}
	}
}
