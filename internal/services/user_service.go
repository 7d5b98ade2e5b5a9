package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"arremate-backend/internal/apperr"
	"arremate-backend/internal/auth"
	"arremate-backend/internal/models"
	"arremate-backend/internal/repositories"
)

// UserStore is the read side of the users table
type UserStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type UserService struct {
	Repo       UserStore
	JWTManager *auth.JWTManager
	log        *zap.Logger
}

func NewUserService(repo UserStore, jwtManager *auth.JWTManager, log *zap.Logger) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
		log:        log.Named("users"),
	}
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "usuário")
	}
	return user, nil
}

// Login checks the credentials and issues a token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("email e senha são obrigatórios")
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Unauthorized("credenciais inválidas")
		}
		return nil, apperr.Internal(err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.log.Warn("failed login", zap.String("email", email))
		return nil, apperr.Unauthorized("credenciais inválidas")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("conta suspensa, contate o administrador")
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("login", zap.Int("user_id", user.ID))
	return &models.AuthResponse{Token: token, User: user}, nil
}
