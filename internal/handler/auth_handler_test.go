package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanagerx/internal/service/auth"
)

type fakeAuthAPI struct {
	sendErr   error
	verifyErr error
	regErr    error

	gotPhone    string
	gotCode     string
	gotName     string
	gotReferrer *int
}

func (f *fakeAuthAPI) SendOTP(_ context.Context, phone string) error {
	f.gotPhone = phone
	return f.sendErr
}

func (f *fakeAuthAPI) VerifyOTP(_ context.Context, phone, code string) (*auth.Session, error) {
	f.gotPhone = phone
	f.gotCode = code
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &auth.Session{Token: "tok", UserID: 0, Registered: false}, nil
}

func (f *fakeAuthAPI) Register(_ context.Context, phone, name string, referrerID *int) (*auth.Session, error) {
	f.gotPhone = phone
	f.gotName = name
	f.gotReferrer = referrerID
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &auth.Session{Token: "tok2", UserID: 9, Registered: true, Name: name}, nil
}

func newAuthTest(api *fakeAuthAPI, verifiedPhone string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(api, zap.NewNop())
	r := gin.New()
	r.POST("/auth/otp/send", h.SendOTP)
	r.POST("/auth/otp/verify", h.VerifyOTP)
	r.POST("/auth/register", func(c *gin.Context) {
		if verifiedPhone != "" {
			c.Set("phone", verifiedPhone)
		}
		c.Next()
	}, h.Register)
	return r
}

func TestSendOTP(t *testing.T) {
	api := &fakeAuthAPI{}
	r := newAuthTest(api, "")

	w := doRequest(t, r, http.MethodPost, "/auth/otp/send", `{"phone": "+919876543210"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if api.gotPhone != "+919876543210" {
		t.Fatalf("service got phone %q", api.gotPhone)
	}
}

func TestSendOTPRejectsUnnormalizedPhone(t *testing.T) {
	r := newAuthTest(&fakeAuthAPI{}, "")

	w := doRequest(t, r, http.MethodPost, "/auth/otp/send", `{"phone": "9876543210"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestVerifyOTPInvalidCode(t *testing.T) {
	api := &fakeAuthAPI{verifyErr: auth.ErrInvalidCode}
	r := newAuthTest(api, "")

	w := doRequest(t, r, http.MethodPost, "/auth/otp/verify", `{"phone": "+919876543210", "code": "000000"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestVerifyOTPThrottled(t *testing.T) {
	api := &fakeAuthAPI{verifyErr: auth.ErrTooManyAttempts}
	r := newAuthTest(api, "")

	w := doRequest(t, r, http.MethodPost, "/auth/otp/verify", `{"phone": "+919876543210", "code": "000000"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestVerifyOTPBadCodeShape(t *testing.T) {
	r := newAuthTest(&fakeAuthAPI{}, "")

	w := doRequest(t, r, http.MethodPost, "/auth/otp/verify", `{"phone": "+919876543210", "code": "12345"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegisterRequiresVerifiedSession(t *testing.T) {
	r := newAuthTest(&fakeAuthAPI{}, "")

	w := doRequest(t, r, http.MethodPost, "/auth/register", `{"name": "Asha Rao"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	api := &fakeAuthAPI{}
	r := newAuthTest(api, "+919876543210")

	w := doRequest(t, r, http.MethodPost, "/auth/register", `{"name": "Asha Rao", "referrer_id": 42}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	if api.gotPhone != "+919876543210" || api.gotName != "Asha Rao" {
		t.Fatalf("service got (%q, %q)", api.gotPhone, api.gotName)
	}
	if api.gotReferrer == nil || *api.gotReferrer != 42 {
		t.Fatalf("referrer = %v, want 42", api.gotReferrer)
	}
}

func TestRegisterRejectsShortName(t *testing.T) {
	r := newAuthTest(&fakeAuthAPI{}, "+919876543210")

	w := doRequest(t, r, http.MethodPost, "/auth/register", `{"name": "Al"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegisterConflict(t *testing.T) {
	api := &fakeAuthAPI{regErr: auth.ErrAlreadyExists}
	r := newAuthTest(api, "+919876543210")

	w := doRequest(t, r, http.MethodPost, "/auth/register", `{"name": "Asha Rao"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}
