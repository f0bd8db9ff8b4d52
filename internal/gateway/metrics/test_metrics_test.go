package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsByCode(t *testing.T) {
	r := NewRegistry()
	r.Observe("/meshmeta.v1.ServiceService/Get", nil, time.Millisecond)
	r.Observe("/meshmeta.v1.ServiceService/Get", connect.NewError(connect.CodeNotFound, errors.New("x")), time.Millisecond)
	r.Observe("/meshmeta.v1.ServiceService/Get", connect.NewError(connect.CodeNotFound, errors.New("y")), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("/meshmeta.v1.ServiceService/Get", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("/meshmeta.v1.ServiceService/Get", "not_found")))
}

func TestCodeLabel(t *testing.T) {
	assert.Equal(t, "ok", CodeLabel(nil))
	assert.Equal(t, "unknown", CodeLabel(errors.New("plain")))
	assert.Equal(t, "invalid_argument", CodeLabel(connect.NewError(connect.CodeInvalidArgument, errors.New("bad"))))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.Observe("/meshmeta.v1.RoleService/List", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "meshmeta_rpc_requests_total"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
