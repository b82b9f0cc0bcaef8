package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/config"
	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/internal/utils"
	"github.com/peerhub/peerhub/pkg/logger"
	"github.com/peerhub/peerhub/pkg/response"
)

// AuthService handles registration, login and the local/directory split.
type AuthService struct {
	db   *gorm.DB
	cfg  *config.JWTConfig
	ldap *LDAPService
}

func NewAuthService(db *gorm.DB, cfg *config.JWTConfig, ldap *LDAPService) *AuthService {
	return &AuthService{db: db, cfg: cfg, ldap: ldap}
}

// RegisterRequest carries a new local account's fields.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest carries credentials for either auth backend.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is a successful login's token and account snapshot.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a local account with an empty profile.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, response.NewValidation("username", "username is required")
	}
	if len(req.Password) < 8 {
		return nil, response.NewValidation("password", "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Password:  hash,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleUser,
		AuthType:  models.AuthTypeLocal,
		IsActive:  true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).
			Where("username = ?", username).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewValidation("username", "username is already taken")
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		_, err := EnsureProfile(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates against the local table first, then the directory when
// enabled. Directory users are mirrored into the local table on first login.
func (s *AuthService) Login(req *LoginRequest) (*LoginResult, error) {
	var user models.User
	err := s.db.Where("username = ?", req.Username).First(&user).Error
	switch {
	case err == nil && user.AuthType == models.AuthTypeLocal:
		if !user.IsActive {
			return nil, response.NewUnauthorized("account is disabled")
		}
		if !utils.CheckPassword(req.Password, user.Password) {
			return nil, response.NewUnauthorized("invalid username or password")
		}
	case err == nil && user.AuthType == models.AuthTypeLDAP:
		updated, authErr := s.ldapLogin(req)
		if authErr != nil {
			return nil, authErr
		}
		user = *updated
	case errors.Is(err, gorm.ErrRecordNotFound):
		if s.ldap == nil || !s.ldap.Enabled() {
			return nil, response.NewUnauthorized("invalid username or password")
		}
		updated, authErr := s.ldapLogin(req)
		if authErr != nil {
			return nil, authErr
		}
		user = *updated
	default:
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		logger.Warnf("recording last login for %s: %v", user.Username, err)
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, s.cfg.ExpireHour)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// ldapLogin authenticates against the directory and upserts the mirrored
// account. The admin role follows directory group membership on every login.
func (s *AuthService) ldapLogin(req *LoginRequest) (*models.User, error) {
	directory, err := s.ldap.Authenticate(req.Username, req.Password)
	if err != nil {
		return nil, response.NewUnauthorized("invalid username or password")
	}

	role := models.RoleUser
	if directory.IsAdmin {
		role = models.RoleAdmin
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("username = ?", directory.Username).First(&user).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			user = models.User{
				Username:  directory.Username,
				Email:     directory.Email,
				FirstName: directory.DisplayName,
				Role:      role,
				AuthType:  models.AuthTypeLDAP,
				IsActive:  true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			_, err := EnsureProfile(tx, user.ID)
			return err
		}
		if findErr != nil {
			return findErr
		}
		if !user.IsActive {
			return response.NewUnauthorized("account is disabled")
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"email": directory.Email,
			"role":  role,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword updates a local account's password after verifying the old
// one. Directory accounts manage passwords in the directory.
func (s *AuthService) ChangePassword(p Principal, oldPassword, newPassword string) error {
	var user models.User
	if err := s.db.First(&user, p.UserID).Error; err != nil {
		return errUserNotFound(err)
	}
	if user.AuthType != models.AuthTypeLocal {
		return response.NewBadRequest("directory accounts cannot change their password here")
	}
	if !utils.CheckPassword(oldPassword, user.Password) {
		return response.NewUnauthorized("current password is incorrect")
	}
	if len(newPassword) < 8 {
		return response.NewValidation("new_password", "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.Model(&user).Update("password", hash).Error
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
func (s *AuthService) EnsureAdmin(username, password string) error {
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username: username,
		Password: hash,
		Role:     models.RoleAdmin,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(admin).Error; err != nil {
			return err
		}
		_, err := EnsureProfile(tx, admin.ID)
		return err
	})
}

// Me returns the account snapshot for the authenticated user.
func (s *AuthService) Me(p Principal) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, p.UserID).Error; err != nil {
		return nil, errUserNotFound(err)
	}
	return &user, nil
}
