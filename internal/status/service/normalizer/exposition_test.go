package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

func TestParseExposition(t *testing.T) {
	t.Run("well-known metrics drive the sample", func(t *testing.T) {
		body := `# TYPE probe_success gauge
probe_success 1
# TYPE probe_duration_ms gauge
probe_duration_ms 184
# TYPE tcp_connections gauge
tcp_connections 42
`
		sample, err := ParseExposition("mon-1", strings.NewReader(body))
		require.NoError(t, err)

		assert.Equal(t, "mon-1", sample.MonitorID)
		assert.Equal(t, model.ResultSuccess, sample.Status)
		assert.Equal(t, 184, sample.ResponseTimeMs)
		assert.Equal(t, 42.0, sample.Metrics["tcp_connections"])
	})

	t.Run("probe_success zero means failure", func(t *testing.T) {
		body := "probe_success 0\n"
		sample, err := ParseExposition("mon-1", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, model.ResultFailure, sample.Status)
	})

	t.Run("empty body defaults to success", func(t *testing.T) {
		sample, err := ParseExposition("mon-1", strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, model.ResultSuccess, sample.Status)
		assert.Empty(t, sample.Metrics)
	})

	t.Run("counters are carried as metrics", func(t *testing.T) {
		body := `# TYPE requests_total counter
requests_total 1027
`
		sample, err := ParseExposition("mon-1", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, 1027.0, sample.Metrics["requests_total"])
	})

	t.Run("malformed payload rejected", func(t *testing.T) {
		_, err := ParseExposition("mon-1", strings.NewReader("{not exposition}"))
		var v *errs.ValidationError
		require.ErrorAs(t, err, &v)
	})
}
