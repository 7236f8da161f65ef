package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.AuthResponse, error) {

	s.logger.Info(ctx, "Registration request")

	result, err := s.credentials.Register(ctx, services.RegisterRequest{
		FullName:        req.FullName,
		Email:           req.Email,
		UserName:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "user_id", result.User.ID)
	return toAuthResponse(result), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.AuthResponse, error) {

	result, err := s.credentials.Login(ctx, services.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, toStatus(err)
	}

	return toAuthResponse(result), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *pb.RefreshRequest) (*pb.AuthResponse, error) {

	result, err := s.credentials.Refresh(ctx, services.RefreshRequest{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return toAuthResponse(result), nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *pb.LogoutRequest) (*pb.LogoutResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.MessageInvalidSession)
	}

	if err := s.credentials.Logout(ctx, userID); err != nil {
		return nil, toStatus(err)
	}

	return &pb.LogoutResponse{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {

	return &pb.PingResponse{Status: "OK"}, nil

}

// toStatus maps a service error to a status carrying only the public message.
func toStatus(err error) error {
	msg := common.PublicMessage(err)
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, common.ErrWeakCredential):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, common.ErrDuplicateEmail), errors.Is(err, common.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, msg)
	case errors.Is(err, common.ErrAccountDisabled):
		return status.Error(codes.PermissionDenied, msg)
	case errors.Is(err, common.ErrInvalidCredentials), common.IsTokenError(err):
		return status.Error(codes.Unauthenticated, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

func toAuthResponse(r *services.AuthResult) *pb.AuthResponse {
	return &pb.AuthResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt.Unix(),
		User: &pb.User{
			Id:       r.User.ID,
			FullName: r.User.FullName,
			Email:    r.User.Email,
			Username: r.User.UserName,
			Roles:    r.User.Roles,
		},
	}
}
