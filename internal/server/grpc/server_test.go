package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	client  pb.CredentialServiceClient
	conn    *grpc.ClientConn
	codec   *auth.TokenCodec
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "0123456789abcdef0123456789abcdef"

	key, err := auth.NewHMACKey([]byte(cfg.SecretKey))
	require.NoError(t, err)
	codec := auth.NewTokenCodec(key, cfg.Issuer, cfg.Audience, cfg.AccessTokenValidityDuration, nil)
	mt := metrics.New()
	svc := services.NewCredentialService(repomanager.NewMemoryRepositoryManager(), codec, cfg, logging.Nop{}, mt, nil)

	s := NewGRPCServer("bufnet", logging.Nop{}, svc, codec, mt)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	return &harness{client: pb.NewCredentialServiceClient(conn), conn: conn, codec: codec, metrics: mt}
}

func aliceRegistration() *pb.RegisterRequest {
	return &pb.RegisterRequest{
		FullName:        "Alice Doe",
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "Wonderland1",
		ConfirmPassword: "Wonderland1",
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}

func TestServer_FullFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.client.Register(ctx, aliceRegistration())
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.User.Username)
	assert.Equal(t, []string{"User"}, reg.User.Roles)
	assert.Greater(t, reg.ExpiresAt, time.Now().Unix())

	login, err := h.client.Login(ctx, &pb.LoginRequest{Email: "alice@example.com", Password: "Wonderland1"})
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, login.RefreshToken)

	refreshed, err := h.client.Refresh(ctx, &pb.RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, login.User.Id, refreshed.User.Id)

	_, err = h.client.Logout(withAccessToken(ctx, refreshed.AccessToken), &pb.LogoutRequest{})
	require.NoError(t, err)

	_, err = h.client.Refresh(ctx, &pb.RefreshRequest{AccessToken: refreshed.AccessToken, RefreshToken: refreshed.RefreshToken})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.MessageInvalidSession, status.Convert(err).Message())

	n, err := testutil.GatherAndCount(h.metrics.Registry(), "gophauth_grpc_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 5, n, "one series per method and code")
}

func TestServer_ErrorCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.Register(ctx, aliceRegistration())
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		code codes.Code
		msg  string
	}{
		{
			name: "duplicate email",
			call: func() error {
				r := aliceRegistration()
				r.Username = "alice2"
				_, err := h.client.Register(ctx, r)
				return err
			},
			code: codes.AlreadyExists,
			msg:  common.MessageDuplicateEmail,
		},
		{
			name: "weak password",
			call: func() error {
				r := aliceRegistration()
				r.Email, r.Username, r.Password, r.ConfirmPassword = "bob@example.com", "bob", "short", "short"
				_, err := h.client.Register(ctx, r)
				return err
			},
			code: codes.InvalidArgument,
			msg:  common.MessageWeakCredential,
		},
		{
			name: "invalid request",
			call: func() error {
				_, err := h.client.Login(ctx, &pb.LoginRequest{})
				return err
			},
			code: codes.InvalidArgument,
			msg:  common.MessageInvalidRequest,
		},
		{
			name: "wrong password",
			call: func() error {
				_, err := h.client.Login(ctx, &pb.LoginRequest{Email: "alice@example.com", Password: "Wonderland2"})
				return err
			},
			code: codes.Unauthenticated,
			msg:  common.MessageInvalidCredentials,
		},
		{
			name: "garbage access token",
			call: func() error {
				_, err := h.client.Refresh(ctx, &pb.RefreshRequest{AccessToken: "a.b.c", RefreshToken: "x"})
				return err
			},
			code: codes.Unauthenticated,
			msg:  common.MessageInvalidSession,
		},
		{
			name: "logout without token",
			call: func() error {
				_, err := h.client.Logout(ctx, &pb.LogoutRequest{})
				return err
			},
			code: codes.Unauthenticated,
			msg:  "missing token",
		},
		{
			name: "logout with garbage token",
			call: func() error {
				_, err := h.client.Logout(withAccessToken(ctx, "not-a-valid-jwt"), &pb.LogoutRequest{})
				return err
			},
			code: codes.Unauthenticated,
			msg:  common.MessageInvalidSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
			assert.Equal(t, tt.msg, status.Convert(err).Message())
		})
	}
}

func TestServer_PingAndHealth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.client.Ping(ctx, &pb.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)

	hc, err := healthpb.NewHealthClient(h.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: pb.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.GetStatus())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, nil, nil, nil)
	require.Error(t, srv.Run(context.Background()))
}
