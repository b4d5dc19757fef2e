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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartService struct {
	*base
}

// ItemUpdate changes a cart line. Nil fields are kept.
type ItemUpdate struct {
	Quantity *int
	Notes    *string
}

func requireCustomer(actor models.Actor) error {
	if actor.Role != models.RoleCustomer {
		return apperr.Forbidden("only customers have a cart")
	}
	return nil
}

// loadCart returns the stored cart of userID, or nil when there is none.
func loadCart(ctx context.Context, db *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&cart, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// saveCart writes the cart row and replaces its items.
func saveCart(tx *gorm.DB, cart *models.Cart) error {
	if err := tx.Omit(clause.Associations).Save(cart).Error; err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil
	}
	for i := range cart.Items {
		cart.Items[i].CartID = cart.ID
		cart.Items[i].Position = i
	}
	if err := tx.Create(&cart.Items).Error; err != nil {
		return fmt.Errorf("save cart items: %w", err)
	}
	return nil
}

func (s *CartService) persist(ctx context.Context, cart *models.Cart) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveCart(tx, cart)
	})
}

// Get returns the caller's cart, or an empty one.
func (s *CartService) Get(ctx context.Context, actor models.Actor) (*models.Cart, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	cart, err := loadCart(ctx, s.db, actor.ID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return models.EmptyCart(actor.ID), nil
	}
	return cart, nil
}

// Count is the total quantity of items in the caller's cart.
func (s *CartService) Count(ctx context.Context, actor models.Actor) (int, error) {
	cart, err := s.Get(ctx, actor)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

// AddItem puts quantity units of a food into the cart. A cart holds items of a
// single restaurant; a food already in the cart has its line incremented.
func (s *CartService) AddItem(ctx context.Context, actor models.Actor, foodID string, quantity int, notes string) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	food, err := loadFood(ctx, s.db, foodID)
	if err != nil {
		return nil, err
	}
	if food == nil {
		return nil, apperr.NotFound("Food item")
	}

	unlock := s.locker.Lock(cartKey(actor.ID))
	defer unlock()

	cart, err := loadCart(ctx, s.db, actor.ID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = models.EmptyCart(actor.ID)
	}

	if len(cart.Items) > 0 && cart.Restaurant != nil && *cart.Restaurant != food.Restaurant {
		return nil, apperr.RestaurantConflict(*cart.Restaurant, food.Restaurant)
	}
	restaurant := food.Restaurant
	cart.Restaurant = &restaurant

	notes = strings.TrimSpace(notes)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].FoodID == food.ID {
			cart.Items[i].Quantity += quantity
			if notes != "" {
				cart.Items[i].Notes = notes
			}
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{
			FoodID:   food.ID,
			Quantity: quantity,
			Price:    food.Price,
			Notes:    notes,
		})
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, actor.ID, notify.KindCartItemAdded, notify.Payload{
		FoodName: food.Name,
		Price:    food.Price,
		Quantity: quantity,
	})
	return cart, nil
}

// UpdateItem changes the quantity and notes of a cart line.
func (s *CartService) UpdateItem(ctx context.Context, actor models.Actor, itemID string, in ItemUpdate) (*models.Cart, error) {
	if in.Quantity != nil && *in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(cartKey(actor.ID))
	defer unlock()

	cart, err := loadCart(ctx, s.db, actor.ID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.NotFound("Cart")
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return nil, apperr.NotFound("Cart item")
	}

	if in.Quantity != nil {
		cart.Items[i].Quantity = *in.Quantity
	}
	if in.Notes != nil {
		cart.Items[i].Notes = strings.TrimSpace(*in.Notes)
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops a cart line. Removing the last line frees the cart for any
// restaurant.
func (s *CartService) RemoveItem(ctx context.Context, actor models.Actor, itemID string) (*models.Cart, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(cartKey(actor.ID))
	defer unlock()

	cart, err := loadCart(ctx, s.db, actor.ID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.NotFound("Cart")
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return nil, apperr.NotFound("Cart item")
	}

	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	if len(cart.Items) == 0 {
		cart.Restaurant = nil
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties the cart. It reports false when there was nothing to clear.
func (s *CartService) Clear(ctx context.Context, actor models.Actor) (bool, error) {
	if err := requireCustomer(actor); err != nil {
		return false, err
	}

	unlock := s.locker.Lock(cartKey(actor.ID))
	defer unlock()

	cart, err := loadCart(ctx, s.db, actor.ID)
	if err != nil {
		return false, err
	}
	if cart == nil || (len(cart.Items) == 0 && cart.Restaurant == nil) {
		return false, nil
	}

	cart.Items = nil
	cart.Restaurant = nil
	if err := s.persist(ctx, cart); err != nil {
		return false, err
	}
	return true, nil
}

// Checkout turns every cart line into a pending order and empties the cart,
// all in one transaction.
func (s *CartService) Checkout(ctx context.Context, actor models.Actor, deliveryAddress, phone string) ([]models.Order, error) {
	deliveryAddress = strings.TrimSpace(deliveryAddress)
	phone = strings.TrimSpace(phone)
	if deliveryAddress == "" || phone == "" {
		return nil, apperr.Validation("delivery address and phone are required")
	}
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(cartKey(actor.ID))
	defer unlock()

	var (
		orders     []models.Order
		foods      = map[string]*models.Food{}
		total      = models.DeliveryFee
		restaurant string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadCart(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			return apperr.Validation("cart is empty")
		}
		total = cart.Total
		if cart.Restaurant != nil {
			restaurant = *cart.Restaurant
		}

		// Lines are grouped by the merchant that owns the food.
		var merchants []string
		byMerchant := map[string][]models.CartItem{}
		for _, item := range cart.Items {
			food, ok := foods[item.FoodID]
			if !ok {
				food, err = loadFood(ctx, tx, item.FoodID)
				if err != nil {
					return err
				}
				if food == nil {
					return apperr.NotFound("Food item")
				}
				foods[item.FoodID] = food
			}
			if _, seen := byMerchant[food.CreatedBy]; !seen {
				merchants = append(merchants, food.CreatedBy)
			}
			byMerchant[food.CreatedBy] = append(byMerchant[food.CreatedBy], item)
		}

		now := s.now()
		for _, merchantID := range merchants {
			for _, item := range byMerchant[merchantID] {
				order := newOrder(foods[item.FoodID], actor, item.Quantity, item.Price, now)
				order.CustomerNotes = item.Notes
				order.DeliveryAddress = deliveryAddress
				order.CustomerPhone = phone
				orders = append(orders, *order)
			}
		}
		if err := tx.Create(&orders).Error; err != nil {
			return fmt.Errorf("create orders: %w", err)
		}

		cart.Items = nil
		cart.Restaurant = nil
		return saveCart(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Checkout()
	s.metrics.OrdersCreated("cart", len(orders))
	slog.Info("Cart checked out", "customer_id", actor.ID, "orders", len(orders))

	s.notifier.Notify(ctx, actor.ID, notify.KindCartCheckout, notify.Payload{
		OrderCount:  len(orders),
		TotalAmount: total,
		Restaurant:  restaurant,
	})
	for i := range orders {
		p := orderPayload(&orders[i], foods[orders[i].FoodID])
		p.CustomerName = actor.Name
		s.notifier.Notify(ctx, *orders[i].MerchantID, notify.KindNewOrder, p)
	}
	return orders, nil
}
