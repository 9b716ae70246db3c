// internal/services/auth_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/database"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type AuthService struct {
	db     *gorm.DB
	config *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, config: cfg}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      models.UserRole
	Location  string
	Phone     string
}

// Register creates a user with a generated role-prefixed unique ID. The ID
// is random, so on the rare collision we regenerate and retry.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     email,
		Role:      input.Role,
		Status:    models.UserStatusActive,
		Location:  input.Location,
		Phone:     input.Phone,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		uniqueID, err := utils.GenerateUniqueID(string(input.Role))
		if err != nil {
			return nil, err
		}
		user.UniqueID = uniqueID
		user.ID = uuid.Nil

		err = s.db.Create(user).Error
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"unique_id": user.UniqueID,
				"role":      user.Role,
			}).Info("User registered")
			return user, nil
		}
		if database.IsUniqueViolation(err) && attempt < maxAttempts-1 {
			continue
		}
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to allocate a unique identifier")
}

// Login checks credentials and returns a signed token. Suspended users
// cannot log in; blocked users can, since they still need to see their
// violation record.
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := user.CheckPassword(password); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		return "", nil, ErrUserInactive
	}

	token, err := utils.GenerateJWT(user.ID, user.UniqueID, string(user.Role), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record login time")
	}
	user.LastLoginAt = &now

	return token, &user, nil
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Wallet").Preload("ViolationRecord").First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
