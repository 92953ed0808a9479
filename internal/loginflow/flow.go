// Package loginflow sequences phone-OTP login: mobile number entry, OTP
// verification, and a one-time name registration step for new users. A failed
// step reports its error and leaves the flow on the same step.
package loginflow

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

type Step string

const (
	StepMobile Step = "mobile"
	StepOTP    Step = "otp"
	StepName   Step = "name"
	StepDone   Step = "done"
)

var (
	ErrWrongStep     = errors.New("submit does not match the current step")
	ErrInvalidMobile = errors.New("invalid mobile number")
	ErrInvalidOTP    = errors.New("otp must be 6 digits")
	ErrInvalidName   = errors.New("name must be at least 3 letters")
)

var (
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
	namePattern   = regexp.MustCompile(`^[A-Za-z ]{3,}$`)
)

// ValidMobile reports whether m is a 10-digit local number starting with 6-9.
// The UI keeps the submit disabled until this holds.
func ValidMobile(m string) bool { return mobilePattern.MatchString(m) }

// ValidOTP reports whether code is exactly 6 numeric digits.
func ValidOTP(code string) bool { return otpPattern.MatchString(code) }

// ValidName reports whether n is letters/spaces, minimum 3 characters.
func ValidName(n string) bool { return namePattern.MatchString(strings.TrimSpace(n)) }

// Session is the authenticated result handed back by the Authenticator.
type Session struct {
	Token      string
	UserID     int
	Registered bool
	Name       string
}

// Authenticator performs the remote auth operations. Implementations hold the
// session token issued by VerifyOTP so Register can present it.
type Authenticator interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*Session, error)
	Register(ctx context.Context, name string, referrerID *int) (*Session, error)
}

// Flow is the login state machine.
type Flow struct {
	auth   Authenticator
	logger *zap.Logger
	// referrerID is a pending referral captured from an invite link, applied
	// at most once, at registration.
	referrerID *int

	step    Step
	phone   string
	session *Session
}

func NewFlow(auth Authenticator, referrerID *int, logger *zap.Logger) *Flow {
	return &Flow{
		auth:       auth,
		referrerID: referrerID,
		logger:     logger,
		step:       StepMobile,
	}
}

func (f *Flow) Step() Step { return f.step }

// Session returns the verified session, or nil before OTP verification.
func (f *Flow) Session() *Session { return f.session }

// Phone returns the E.164-normalized number once the mobile step passed.
func (f *Flow) Phone() string { return f.phone }

// SubmitMobile validates the number, dispatches an OTP and advances to the
// OTP step. On dispatch failure the flow stays on the mobile step.
func (f *Flow) SubmitMobile(ctx context.Context, mobile string) error {
	if f.step != StepMobile {
		return ErrWrongStep
	}
	if !ValidMobile(mobile) {
		return ErrInvalidMobile
	}

	phone := mobile
	if !strings.HasPrefix(phone, "+91") {
		phone = "+91" + phone
	}

	if err := f.auth.SendOTP(ctx, phone); err != nil {
		f.logger.Warn("OTP dispatch failed", zap.Error(err))
		return err
	}

	f.phone = phone
	f.step = StepOTP
	f.logger.Info("OTP dispatched, awaiting code")
	return nil
}

// SubmitOTP verifies the code. A first-time user advances to the name step;
// an existing user completes the flow.
func (f *Flow) SubmitOTP(ctx context.Context, code string) error {
	if f.step != StepOTP {
		return ErrWrongStep
	}
	if !ValidOTP(code) {
		return ErrInvalidOTP
	}

	sess, err := f.auth.VerifyOTP(ctx, f.phone, code)
	if err != nil {
		f.logger.Warn("OTP verification failed", zap.Error(err))
		return err
	}

	f.session = sess
	if !sess.Registered {
		f.step = StepName
		f.logger.Info("New user, name registration required")
		return nil
	}
	f.step = StepDone
	f.logger.Info("Login complete", zap.Int("user_id", sess.UserID))
	return nil
}

// SubmitName registers the user record, applying any pending referral, and
// completes the flow.
func (f *Flow) SubmitName(ctx context.Context, name string) error {
	if f.step != StepName {
		return ErrWrongStep
	}
	if !ValidName(name) {
		return ErrInvalidName
	}

	sess, err := f.auth.Register(ctx, strings.TrimSpace(name), f.referrerID)
	if err != nil {
		f.logger.Warn("Registration failed", zap.Error(err))
		return err
	}

	f.session = sess
	f.step = StepDone
	f.logger.Info("Registration complete", zap.Int("user_id", sess.UserID))
	return nil
}
