// internal/services/wallet_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistaprohq/vistapro-backend/internal/models"
)

func TestWalletWithdrawals(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	wallets := NewWalletService(db, cfg, nil, nil)
	marketer := createTestUser(t, db, models.UserRoleMarketer)

	require.NoError(t, wallets.CreditCommission(db, marketer.ID, 30000, "sale:test"))

	t.Run("below minimum payout", func(t *testing.T) {
		_, err := wallets.Withdraw(marketer.ID, 500)
		assert.ErrorIs(t, err, ErrBelowMinimumPayout)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		_, err := wallets.Withdraw(marketer.ID, 50000)
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		wallet, err := wallets.GetWallet(marketer.ID)
		require.NoError(t, err)
		assert.Equal(t, 30000.0, wallet.AvailableBalance)
	})

	t.Run("successful withdrawal debits once", func(t *testing.T) {
		transaction, err := wallets.Withdraw(marketer.ID, 20000)
		require.NoError(t, err)
		assert.Equal(t, models.WalletTransactionWithdrawal, transaction.Type)
		assert.NotNil(t, transaction.ProcessedAt)

		wallet, err := wallets.GetWallet(marketer.ID)
		require.NoError(t, err)
		assert.Equal(t, 10000.0, wallet.AvailableBalance)
	})
}

func TestAuthRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	auth := NewAuthService(db, cfg)

	user, err := auth.Register(RegisterInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "Ada.Okafor@Example.com",
		Password:  "s3cret-pass",
		Role:      models.UserRoleMarketer,
		Location:  "Lagos",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.UniqueID, "DSR"), "marketer IDs carry the DSR prefix, got %s", user.UniqueID)
	assert.Equal(t, "ada.okafor@example.com", user.Email)

	_, err = auth.Register(RegisterInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "ada.okafor@example.com",
		Password:  "another-pass",
		Role:      models.UserRoleMarketer,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	t.Run("login with wrong password", func(t *testing.T) {
		_, _, err := auth.Login("ada.okafor@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("login issues a token", func(t *testing.T) {
		token, loggedIn, err := auth.Login("ada.okafor@example.com", "s3cret-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotNil(t, loggedIn.LastLoginAt)
	})

	t.Run("suspended users cannot log in", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("status", models.UserStatusSuspended).Error)

		_, _, err := auth.Login("ada.okafor@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}
