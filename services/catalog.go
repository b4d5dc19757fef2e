package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/notify"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CatalogService struct {
	*base
}

type FoodInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
}

// FoodUpdate holds the fields a merchant may change. Nil fields are kept.
type FoodUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
}

type FoodFilter struct {
	Restaurant string
	Category   string
	Search     string
}

func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return apperr.Validation("price must be greater than zero")
	}
	return nil
}

// Create adds a menu item under the caller's restaurant.
func (s *CatalogService) Create(ctx context.Context, actor models.Actor, in FoodInput) (*models.Food, error) {
	if actor.Role != models.RoleMerchant && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only merchants can create food items")
	}
	if strings.TrimSpace(actor.RestaurantName) == "" {
		return nil, apperr.Validation("please set your restaurant name in your profile first")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}

	food := &models.Food{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Category:    strings.TrimSpace(in.Category),
		Restaurant:  actor.RestaurantName,
		CreatedBy:   actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(food).Error; err != nil {
		return nil, fmt.Errorf("create food: %w", err)
	}

	s.notifier.Notify(ctx, actor.ID, notify.KindFoodCreated, notify.Payload{
		FoodName:   food.Name,
		Price:      food.Price,
		Restaurant: food.Restaurant,
	})
	return food, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Food, error) {
	var food models.Food
	err := s.db.WithContext(ctx).First(&food, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Food item")
	}
	if err != nil {
		return nil, fmt.Errorf("get food: %w", err)
	}
	return &food, nil
}

func (s *CatalogService) List(ctx context.Context, f FoodFilter) ([]models.Food, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if f.Restaurant != "" {
		q = q.Where("restaurant = ?", f.Restaurant)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	foods := []models.Food{}
	if err := q.Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	return foods, nil
}

// ListByMerchant returns the caller's own menu. Admins see every item.
func (s *CatalogService) ListByMerchant(ctx context.Context, actor models.Actor) ([]models.Food, error) {
	if actor.Role != models.RoleMerchant && !actor.IsAdmin() {
		return nil, apperr.Forbidden("merchant role required")
	}

	q := s.db.WithContext(ctx).Order("created_at desc")
	if !actor.IsAdmin() {
		q = q.Where("created_by = ?", actor.ID)
	}
	foods := []models.Food{}
	if err := q.Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("list merchant foods: %w", err)
	}
	return foods, nil
}

// Update changes a menu item. Restaurant and creator never change.
func (s *CatalogService) Update(ctx context.Context, actor models.Actor, id string, in FoodUpdate) (*models.Food, error) {
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return nil, err
		}
		updates["price"] = in.Price.Round(2)
	}
	if in.Category != nil {
		updates["category"] = strings.TrimSpace(*in.Category)
	}

	food, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && food.CreatedBy != actor.ID {
		return nil, apperr.Forbidden("you can only update your own food items")
	}
	if len(updates) == 0 {
		return food, nil
	}

	if err := s.db.WithContext(ctx).Model(food).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update food: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *CatalogService) Delete(ctx context.Context, actor models.Actor, id string) error {
	food, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && food.CreatedBy != actor.ID {
		return apperr.Forbidden("you can only delete your own food items")
	}

	if err := s.db.WithContext(ctx).Delete(food).Error; err != nil {
		return fmt.Errorf("delete food: %w", err)
	}

	s.notifier.Notify(ctx, food.CreatedBy, notify.KindFoodDeleted, notify.Payload{
		FoodName:   food.Name,
		Restaurant: food.Restaurant,
	})
	return nil
}
