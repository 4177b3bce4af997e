package normalizer

import (
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

// Well-known metric names in pushed exposition payloads. probe_success and
// probe_duration_ms drive the derived status; everything else is carried as
// raw metrics.
const (
	metricSuccess  = "probe_success"
	metricDuration = "probe_duration_ms"
)

// ParseExposition reads a Prometheus text exposition body and maps it onto a
// PushSample for the given monitor.
func ParseExposition(monitorID string, body io.Reader) (*PushSample, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(body)
	if err != nil {
		return nil, errs.Validation("body", "malformed exposition payload: "+err.Error())
	}

	sample := &PushSample{
		MonitorID: monitorID,
		Status:    model.ResultSuccess,
		Metrics:   map[string]float64{},
	}

	for name, family := range families {
		value, ok := firstValue(family)
		if !ok {
			continue
		}
		switch name {
		case metricSuccess:
			if value == 0 {
				sample.Status = model.ResultFailure
			}
		case metricDuration:
			sample.ResponseTimeMs = int(value)
		default:
			sample.Metrics[name] = value
		}
	}

	return sample, nil
}

func firstValue(family *dto.MetricFamily) (float64, bool) {
	if len(family.Metric) == 0 {
		return 0, false
	}
	m := family.Metric[0]
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue(), true
	case m.Counter != nil:
		return m.Counter.GetValue(), true
	case m.Untyped != nil:
		return m.Untyped.GetValue(), true
	}
	return 0, false
}
