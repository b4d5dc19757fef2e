package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type UserService struct {
	*base
}

type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Phone    string
}

var validate = validator.New()

// validateRegistration checks the normalized input and reports the first
// failing field.
func validateRegistration(in RegisterInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return fmt.Errorf("validate registration: %w", err)
	}
	switch fields[0].Field() {
	case "Name":
		return apperr.Validation("name is required")
	case "Email":
		return apperr.Validation("a valid email is required")
	default:
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active customer account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if err := validateRegistration(RegisterInput{Name: name, Email: email, Password: in.Password}); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
		Phone:        strings.TrimSpace(in.Phone),
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("email already registered")
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notifier.Notify(ctx, user.ID, notify.KindWelcome, notify.Payload{UserName: user.Name})
	return user, nil
}

// Authenticate checks credentials and returns the matching active user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("account is deactivated")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Resolve returns the actor for a user id taken from a verified token.
func (s *UserService) Resolve(ctx context.Context, id string) (models.Actor, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.Actor{}, err
	}
	return models.ActorFor(user), nil
}

// List returns every user, newest first, optionally filtered by role.
func (s *UserService) List(ctx context.Context, actor models.Actor, role models.UserRole) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	if role != "" && !role.Valid() {
		return nil, apperr.Validation("invalid role %q", role)
	}

	q := s.db.WithContext(ctx).Order("created_at desc")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	users := []models.User{}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateRole changes a user's role. A restaurant name given with the merchant
// role replaces the stored one.
func (s *UserService) UpdateRole(ctx context.Context, actor models.Actor, id string, role models.UserRole, restaurantName string) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("invalid role %q", role)
	}
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"role": role}
	if role == models.RoleMerchant && strings.TrimSpace(restaurantName) != "" {
		updates["restaurant_name"] = strings.TrimSpace(restaurantName)
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	slog.Info("User role updated", "user_id", id, "role", role, "by", actor.ID)
	return s.Get(ctx, id)
}

// ToggleActive flips the active flag of a user.
func (s *UserService) ToggleActive(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == actor.ID {
		return nil, apperr.Validation("you cannot deactivate your own account")
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", !user.IsActive).Error; err != nil {
		return nil, fmt.Errorf("toggle user status: %w", err)
	}
	user.IsActive = !user.IsActive
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	if id == actor.ID {
		return apperr.Validation("you cannot delete your own account")
	}

	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	slog.Info("Admin account created", "email", email)
	return nil
}
