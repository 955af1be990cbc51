// Package module wires the detection orchestrator from config
package module

import (
	"time"

	"jagapadi/internal/platform/config"
	dom "jagapadi/internal/services/detection/domain"
	"jagapadi/internal/services/detection/service"
)

// FromConfig reads CORE_DETECTION_*. DELIVERY must be async or response
func FromConfig(cfg config.Conf) service.Config {
	c := cfg.Prefix("CORE_DETECTION_")
	mode, _ := dom.ParseDelivery(c.MayEnum("DELIVERY", string(dom.Async), string(dom.Async), string(dom.Response)))
	return service.Config{
		Delivery:          mode,
		SubmitTimeout:     c.MayDuration("SUBMIT_TIMEOUT", 30*time.Second),
		ResultTimeout:     c.MayDuration("RESULT_TIMEOUT", 0),
		RecommendationCap: c.MayInt("RECOMMENDATION_CAP", 8),
	}
}
