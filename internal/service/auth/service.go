package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskmanagerx/internal/repository"
	"taskmanagerx/internal/util"
	"taskmanagerx/pkg/metrics"
)

const (
	codeTTL        = 5 * time.Minute
	maxAttempts    = 5
	referralPoints = 10
)

var (
	ErrInvalidCode     = errors.New("invalid or expired otp")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrAlreadyExists   = errors.New("phone already registered")
)

// Session is issued after a successful OTP verification. UserID is 0 and
// Registered false until the phone has a user row.
type Session struct {
	Token      string `json:"token"`
	UserID     int    `json:"user_id"`
	Registered bool   `json:"registered"`
	Name       string `json:"name"`
}

type Service struct {
	db        *pgxpool.Pool
	users     *repository.UserRepository
	referrals *repository.ReferralRepository
	codes     CodeStore
	sms       SMSSender
	jwtSecret string
	logger    *zap.Logger
}

func NewService(
	db *pgxpool.Pool,
	users *repository.UserRepository,
	referrals *repository.ReferralRepository,
	codes CodeStore,
	sms SMSSender,
	jwtSecret string,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		users:     users,
		referrals: referrals,
		codes:     codes,
		sms:       sms,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// SendOTP generates a 6-digit code, stores its bcrypt hash under a TTL and
// hands the code to the SMS sender. Only the hash is ever at rest.
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.codes.SaveCode(ctx, phone, string(hash), codeTTL); err != nil {
		s.logger.Error("Failed to store otp code", zap.String("phone", phone), zap.Error(err))
		metrics.IncrementOTPRequest("send", "failed")
		return err
	}

	if err := s.sms.Send(ctx, phone, fmt.Sprintf("Your TaskManagerX verification code is %s", code)); err != nil {
		s.logger.Error("Failed to send otp sms", zap.String("phone", phone), zap.Error(err))
		metrics.IncrementOTPRequest("send", "failed")
		return err
	}

	s.logger.Info("OTP dispatched", zap.String("phone", phone))
	metrics.IncrementOTPRequest("send", "success")
	return nil
}

// VerifyOTP checks the submitted code against the stored hash, bounded by an
// attempt counter, and issues a session on success.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	attempts, err := s.codes.IncrAttempts(ctx, phone, codeTTL)
	if err != nil {
		return nil, err
	}
	if attempts > maxAttempts {
		s.logger.Warn("OTP attempt limit exceeded",
			zap.String("phone", phone),
			zap.Int64("attempts", attempts),
		)
		metrics.IncrementOTPRequest("verify", "throttled")
		return nil, ErrTooManyAttempts
	}

	hash, err := s.codes.GetCode(ctx, phone)
	if errors.Is(err, ErrNoCode) {
		metrics.IncrementOTPRequest("verify", "failed")
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		s.logger.Warn("OTP mismatch", zap.String("phone", phone))
		metrics.IncrementOTPRequest("verify", "failed")
		return nil, ErrInvalidCode
	}

	// The challenge is single-use.
	if err := s.codes.DeleteCode(ctx, phone); err != nil {
		s.logger.Warn("Failed to delete consumed otp", zap.String("phone", phone), zap.Error(err))
	}

	sess := &Session{}
	u, err := s.users.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		sess.UserID = u.ID
		sess.Registered = u.Name != ""
		sess.Name = u.Name
	case errors.Is(err, pgx.ErrNoRows):
		// New user: session is issued bound to the phone, registration follows.
	default:
		return nil, err
	}

	token, err := util.GenerateJWT(sess.UserID, phone, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	sess.Token = token

	s.logger.Info("OTP verified",
		zap.String("phone", phone),
		zap.Bool("registered", sess.Registered),
	)
	metrics.IncrementOTPRequest("verify", "success")
	return sess, nil
}

// Register creates the user row for a verified phone. When a valid referrer
// is supplied, the referral row and the referrer's reward points are written
// in the same transaction.
func (s *Service) Register(ctx context.Context, phone, name string, referrerID *int) (*Session, error) {
	existing, err := s.users.FindByPhone(ctx, phone)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	// A dangling referrer id is dropped, not an error.
	var validReferrer *int
	if referrerID != nil {
		refUser, err := s.users.FindByID(ctx, *referrerID)
		switch {
		case err == nil:
			validReferrer = &refUser.ID
		case errors.Is(err, pgx.ErrNoRows):
			s.logger.Warn("Referrer not found, ignoring",
				zap.Int("referrer_id", *referrerID),
			)
		default:
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := s.users.CreateInTx(ctx, tx, phone, name, validReferrer)
	if err != nil {
		return nil, err
	}

	if validReferrer != nil {
		if err := s.referrals.InsertInTx(ctx, tx, *validReferrer, u.ID, true); err != nil {
			return nil, err
		}
		if err := s.users.AwardPointsInTx(ctx, tx, *validReferrer, referralPoints); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	token, err := util.GenerateJWT(u.ID, phone, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int("user_id", u.ID),
		zap.String("phone", phone),
		zap.Bool("referred", validReferrer != nil),
	)
	return &Session{
		Token:      token,
		UserID:     u.ID,
		Registered: true,
		Name:       u.Name,
	}, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
