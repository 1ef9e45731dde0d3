package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationStarted(t *testing.T) {
	before := testutil.ToFloat64(invocationsTotal.WithLabelValues("search", "rest", OutcomeOK))

	done := InvocationStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(invocationsInFlight))
	done("search", "rest", OutcomeOK, 20*time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(invocationsInFlight))
	assert.Equal(t, before+1, testutil.ToFloat64(invocationsTotal.WithLabelValues("search", "rest", OutcomeOK)))
}

func TestRecordLoad(t *testing.T) {
	RecordLoad(4, nil)
	assert.Equal(t, 4.0, testutil.ToFloat64(toolsLoaded))

	failures := testutil.ToFloat64(configLoadsTotal.WithLabelValues("error"))
	RecordLoad(0, errors.New("bad file"))
	assert.Equal(t, failures+1, testutil.ToFloat64(configLoadsTotal.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(toolsLoaded), "failed load keeps the previous count")
}

func TestSourceConnected(t *testing.T) {
	SetSourceConnected("my-pg", "postgres", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(sourceConnected.WithLabelValues("my-pg", "postgres")))
	SetSourceConnected("my-pg", "postgres", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(sourceConnected.WithLabelValues("my-pg", "postgres")))

	ResetSources()
	assert.Equal(t, 0, testutil.CollectAndCount(sourceConnected))
}

func TestHandler(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/api/toolset/{name}", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "toolbox_http_requests_total"))
	assert.True(t, strings.Contains(body, "toolbox_invocations_in_flight"))
}
