package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	TrafficLookups.WithLabelValues("fallback").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(TrafficLookups.WithLabelValues("fallback")), 1.0)

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["traffic_lookups_total"])
	assert.True(t, names["go_goroutines"])
}
