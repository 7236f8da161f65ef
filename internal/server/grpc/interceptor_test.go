package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeVerifier struct {
	claims *auth.Claims
	err    error
	seen   string
}

func (f *fakeVerifier) Verify(token string) (*auth.Claims, error) {
	f.seen = token
	return f.claims, f.err
}

func newTestServer(v AccessVerifier) *GRPCServer {
	return NewGRPCServer("", logging.Nop{}, nil, v, nil)
}

var logoutInfo = &grpc.UnaryServerInfo{FullMethod: pb.CredentialService_Logout_FullMethodName}

func TestInterceptor_PublicMethodsSkipToken(t *testing.T) {
	v := &fakeVerifier{err: errors.New("must not be called")}
	s := newTestServer(v)

	info := &grpc.UnaryServerInfo{FullMethod: pb.CredentialService_Refresh_FullMethodName}
	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Empty(t, v.seen)
}

func TestInterceptor_Logout(t *testing.T) {
	tests := []struct {
		name     string
		md       metadata.MD
		verifier *fakeVerifier
		wantMsg  string
	}{
		{
			name:     "missing token",
			verifier: &fakeVerifier{},
			wantMsg:  "missing token",
		},
		{
			name:     "verifier rejects",
			md:       metadata.Pairs(common.AccessTokenHeaderName, "tok"),
			verifier: &fakeVerifier{err: common.ErrTokenExpired},
			wantMsg:  common.MessageInvalidSession,
		},
		{
			name:     "no user id claim",
			md:       metadata.Pairs(common.AccessTokenHeaderName, "tok"),
			verifier: &fakeVerifier{claims: &auth.Claims{}},
			wantMsg:  common.MessageInvalidSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.verifier)
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}

			_, err := s.accessTokenInterceptor(ctx, nil, logoutInfo, func(context.Context, any) (any, error) {
				t.Fatal("handler should not be called")
				return nil, nil
			})
			require.Error(t, err)
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
			assert.Equal(t, tt.wantMsg, status.Convert(err).Message())
		})
	}
}

func TestInterceptor_Logout_PutsUserIDInContext(t *testing.T) {
	v := &fakeVerifier{claims: &auth.Claims{UserID: "u-42"}}
	s := newTestServer(v)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "tok"))

	var got string
	_, err := s.accessTokenInterceptor(ctx, nil, logoutInfo, func(ctx context.Context, req any) (any, error) {
		got, _ = userIDFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u-42", got)
	assert.Equal(t, "tok", v.seen)
}
