package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPluginSetupTotal(t *testing.T) {
	before := testutil.ToFloat64(PluginSetupTotal.WithLabelValues("MetricsTest", ResultSkipped))
	PluginSetupTotal.WithLabelValues("MetricsTest", ResultSkipped).Inc()
	after := testutil.ToFloat64(PluginSetupTotal.WithLabelValues("MetricsTest", ResultSkipped))

	assert.Equal(t, before+1, after)
}

func TestObserveSince(t *testing.T) {
	h := PluginSetupDuration.WithLabelValues("MetricsObserve")
	ObserveSince(h, time.Now().Add(-time.Second))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(PluginSetupDuration, "orchestra_framework_plugin_setup_duration_seconds"), 1)
}
