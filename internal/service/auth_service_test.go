package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-order/internal/logging"
	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/utils"
)

func newAuthService(t *testing.T) (*AuthService, *clock) {
	t.Helper()
	hash, err := utils.HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	admins := fakeAdmins{"admin": {ID: 1, StoreID: 3, Username: "admin", PasswordHash: hash}}
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewAuthService(admins, "test-secret", 480*time.Minute, logging.Discard())
	svc.now = clk.Now
	return svc, clk
}

func TestLogin(t *testing.T) {
	svc, clk := newAuthService(t)

	tok, admin, err := svc.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), admin.ID)
	assert.Equal(t, clk.Now().Add(8*time.Hour), tok.Exp)

	claims, err := svc.VerifyAdminToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.AdminID)
	assert.Equal(t, uint64(3), claims.StoreID)
	assert.Equal(t, "admin", claims.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthService(t)

	_, _, err := svc.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(context.Background(), "ghost", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyAdminToken_Expiry(t *testing.T) {
	svc, clk := newAuthService(t)
	tok, err := svc.IssueAdminToken(&model.Admin{ID: 1, StoreID: 3, Username: "admin"})
	require.NoError(t, err)

	clk.Advance(8*time.Hour + time.Minute)
	_, err = svc.VerifyAdminToken(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.VerifyAdminToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
