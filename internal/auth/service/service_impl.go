package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt"
	"github.com/securesign/securesign/internal/auth/domain"
	"github.com/securesign/securesign/internal/auth/password"
	"github.com/securesign/securesign/internal/config"
	"github.com/securesign/securesign/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLen = 8

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
}

type Service struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:   p.Config,
		db:    p.DB,
		log:   p.Log.Named("auth.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" || !strings.Contains(addr, "@") {
		return domain.AuthResponse{}, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLen {
		return domain.AuthResponse{}, domain.ErrInvalidPassword
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, addr)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	if existing != nil {
		return domain.AuthResponse{}, domain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        addr,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.AuthResponse{}, domain.ErrEmailTaken
		}
		return domain.AuthResponse{}, err
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return domain.AuthResponse{Token: token, User: user}, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.FindByEmail(ctx, s.db, addr)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	return domain.AuthResponse{Token: token, User: *user}, nil
}

func (s *Service) Verify(ctx context.Context, tokenString string) (snowflake.ID, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, domain.ErrInvalidToken
	}

	id, err := snowflake.ParseString(claims.Subject)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidToken
	}
	return id, nil
}

func (s *Service) issueToken(userID snowflake.ID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.StandardClaims{
		Subject:   userID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Duration(s.cfg.AuthTokenTTLHr) * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AuthJWTSecret))
}
