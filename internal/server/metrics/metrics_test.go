package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptor_CountsByMethodAndCode(t *testing.T) {
	m := New()
	info := &grpc.UnaryServerInfo{FullMethod: "/svc.Store/List"}

	ok := func(context.Context, any) (any, error) { return "ok", nil }
	fail := func(context.Context, any) (any, error) { return nil, status.Error(codes.NotFound, "nope") }

	resp, err := m.UnaryInterceptor(context.Background(), nil, info, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = m.UnaryInterceptor(context.Background(), nil, info, fail)
	require.Equal(t, codes.NotFound, status.Code(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("List", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("List", "NotFound")))
}

func TestStreamInterceptor_Counts(t *testing.T) {
	m := New()
	info := &grpc.StreamServerInfo{FullMethod: "/svc.Store/Subscribe", IsServerStream: true}

	err := m.StreamInterceptor(nil, nil, info, func(any, grpc.ServerStream) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("Subscribe", "OK")))
}

func TestSubscriptionGauge(t *testing.T) {
	m := New()

	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptions))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.SnapshotSent("foods")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `nutrikeeper_store_snapshots_sent_total{collection="foods"} 1`)
	assert.Contains(t, string(body), "nutrikeeper_store_active_subscriptions 0")
}
