package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultSuccess},
		{fmt.Errorf("%w: email", common.ErrValidation), ResultValidation},
		{common.ErrInvalidCredentials, ResultInvalidCredentials},
		{common.ErrAccountDisabled, ResultAccountDisabled},
		{common.ErrDuplicateEmail, ResultDuplicate},
		{common.ErrDuplicateUsername, ResultDuplicate},
		{common.ErrWeakCredential, ResultWeakCredential},
		{fmt.Errorf("%w: %v", common.ErrInvalidAccessToken, common.ErrInvalidSignature), ResultInvalidToken},
		{common.ErrInvalidRefreshToken, ResultInvalidToken},
		{common.ErrorInternal, ResultError},
		{errors.New("boom"), ResultError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Result(tt.err), "%v", tt.err)
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.Login(nil)
	m.Login(common.ErrInvalidCredentials)
	m.Login(common.ErrInvalidCredentials)
	m.Registration(common.ErrDuplicateEmail)
	m.Refresh(common.ErrInvalidRefreshToken)
	m.Logout()
	m.ReuseDetected()
	m.ObserveRPC("/x", "OK", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(ResultInvalidCredentials)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues(ResultDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(ResultInvalidToken)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reuseDetected))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rpcDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login(nil)
		m.Registration(nil)
		m.Refresh(nil)
		m.Logout()
		m.ReuseDetected()
		m.ObserveRPC("/x", "OK", time.Second)
	})
}

func TestRouter(t *testing.T) {
	m := New()
	m.Logout()

	srv := httptest.NewServer(NewRouter(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "gophauth_logouts_total 1"))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", New(), logging.Nop{}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
