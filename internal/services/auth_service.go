package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crowdfund/backend/internal/auth"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidSignature = errors.New("invalid signature")

const signInPrefix = "Sign in to Crowdfund\nNonce: "

type nonceStore interface {
	Save(ctx context.Context, address, message string, ttl time.Duration) error
	Consume(ctx context.Context, address string) (string, error)
}

type AuthService struct {
	nonces    nonceStore
	audit     AuditLogger
	jwtSecret string
	jwtTTL    time.Duration
	nonceTTL  time.Duration
	log       *zap.Logger
}

func NewAuthService(nonces nonceStore, audit AuditLogger, jwtSecret string, jwtTTL, nonceTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		nonces:    nonces,
		audit:     audit,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		nonceTTL:  nonceTTL,
		log:       log,
	}
}

// IssueNonce stores a one-time challenge for address and returns the message
// the wallet has to sign.
func (s *AuthService) IssueNonce(ctx context.Context, address string) (string, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	msg := signInPrefix + uuid.NewString()
	if err := s.nonces.Save(ctx, addr, msg, s.nonceTTL); err != nil {
		return "", fmt.Errorf("save nonce: %w", err)
	}
	return msg, nil
}

// Verify checks the signed challenge and returns a session token for the signer.
func (s *AuthService) Verify(ctx context.Context, address, signature string) (string, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	msg, err := s.nonces.Consume(ctx, addr)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("%w: no pending nonce", ErrInvalidSignature)
	}
	if err != nil {
		return "", fmt.Errorf("load nonce: %w", err)
	}

	if err := auth.VerifySignature(common.HexToAddress(addr), msg, signature); err != nil {
		s.log.Info("wallet sign-in rejected", zap.String("address", addr), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	token, err := auth.GenerateJWT(s.jwtSecret, addr, s.jwtTTL)
	if err != nil {
		return "", err
	}

	if err := s.audit.Log(ctx, models.AuditLog{
		ActorAddress: &addr,
		ActorType:    "user",
		Action:       "wallet_sign_in",
		EntityType:   "session",
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", "wallet_sign_in"), zap.Error(err))
	}
	return token, nil
}
