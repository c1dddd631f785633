package metrics

import (
	"context"

	"github.com/saiset-co/sai-campaigns/types"
)

var customMetricsCreators = make(map[string]types.MetricsManagerCreator)

func RegisterMetricsManager(name string, creator types.MetricsManagerCreator) {
	customMetricsCreators[name] = creator
}

// NewMetricsManager returns a no-op manager when metrics are disabled so callers
// never have to nil-check.
func NewMetricsManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.MetricsManager, error) {
	metricsConfig := config.GetConfig().Metrics
	if metricsConfig == nil || !metricsConfig.Enabled {
		return NewNoopMetrics(), nil
	}

	switch metricsConfig.Type {
	case "prometheus":
		return NewPrometheusMetrics(ctx, logger, metricsConfig)
	case "noop":
		return NewNoopMetrics(), nil
	default:
		if creator, exists := customMetricsCreators[metricsConfig.Type]; exists {
			return creator(metricsConfig)
		}
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", metricsConfig.Type)
	}
}
