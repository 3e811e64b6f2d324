package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/model"
)

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupAll(t)

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Username: "john", Email: "test@example.com", Password: "hashed",
		FirstName: "John", LastName: "Doe", Role: model.RoleCustomer,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "john", found.Username)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "john", "other@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &model.User{Username: "john", Email: "x@example.com", Password: "hashed", Role: model.RoleCustomer}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateUser)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewUserRepository(testPool)
	user := seedUser(t, "jane")

	user.FirstName = "Janet"
	user.Phone = "0900"
	require.NoError(t, repo.UpdateProfile(ctx, user))

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Janet", found.FirstName)
	assert.Equal(t, "0900", found.Phone)
}

func TestCategoryRepo_CRUD(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewCategoryRepository(testPool)

	category := seedCategory(t, "Books")
	category.Icon = "book"
	require.NoError(t, repo.Update(ctx, category))

	found, err := repo.GetByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, "book", found.Icon)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, category.ID))
	assert.ErrorIs(t, repo.Delete(ctx, category.ID), ErrNotFound)
}

func TestShopRepo_CreateAndSlugs(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewShopRepository(testPool)

	owner := seedUser(t, "owner")
	shop := seedShop(t, owner, "corner-store")
	assert.True(t, shop.IsActive)

	seller, err := NewUserRepository(testPool).GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, seller.IsSeller)

	other := seedUser(t, "other")
	clash := &model.Shop{OwnerID: other.ID, Name: "Corner Store", Slug: "corner-store"}
	assert.ErrorIs(t, repo.Create(ctx, clash), ErrSlugTaken)

	second := &model.Shop{OwnerID: owner.ID, Name: "Second", Slug: "second"}
	assert.ErrorIs(t, repo.Create(ctx, second), ErrShopOwnerTaken)

	seedShop(t, other, "corner-store-1")
	taken, err := repo.TakenSlugs(ctx, "corner-store")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"corner-store", "corner-store-1"}, taken)

	bySlug, err := repo.GetBySlug(ctx, "corner-store")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, "owner", bySlug.OwnerUsername)

	byOwner, err := repo.GetByOwner(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "corner-store-1", byOwner.Slug)
}

func TestShopRepo_FollowUnfollow(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewShopRepository(testPool)

	shop := seedShop(t, seedUser(t, "owner"), "shop")
	fan := seedUser(t, "fan")

	created, err := repo.Follow(ctx, shop.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Follow(ctx, shop.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, created)

	following, err := repo.IsFollowing(ctx, shop.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, following)

	found, err := repo.GetByID(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.FollowerCount)

	removed, err := repo.Unfollow(ctx, shop.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Unfollow(ctx, shop.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func newTestOrder(user *model.User, number string, items ...model.OrderItem) *model.Order {
	order := &model.Order{
		UserID: user.ID, OrderNumber: number, FullName: "Jane Doe", Phone: "0900",
		Address: "1 Main St", City: "Hanoi", District: "Ba Dinh", PostalCode: "10000",
		Status: model.OrderStatusPending, PaymentMethod: model.PaymentMethodCOD,
		PaymentStatus: model.PaymentStatusPending, Items: items,
	}
	subtotal := decimal.Zero
	for i := range order.Items {
		order.Items[i].Recalculate()
		subtotal = subtotal.Add(order.Items[i].Subtotal)
	}
	order.Subtotal = subtotal
	order.Total = subtotal
	return order
}

func lineFor(p *model.Product, qty int) model.OrderItem {
	return model.OrderItem{ProductID: p.ID, ProductName: p.Name, ProductPrice: p.Price, Quantity: qty}
}

func TestOrderRepo_CreateReservesStock(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	products := NewProductRepository(testPool)

	user := seedUser(t, "buyer")
	category := seedCategory(t, "Lamps")
	lamp := seedProduct(t, category.ID, nil, "150", 5)

	line := lineFor(lamp, 2)
	line.Variant = map[string]any{"color": "white", "watts": 40}
	order := newTestOrder(user, "ORD00000001", line)
	require.NoError(t, repo.Create(ctx, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	stored, err := products.GetByID(ctx, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)
	assert.Equal(t, 2, stored.Sold)

	found, err := repo.GetForUser(ctx, order.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Items, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(found.Items[0].Subtotal))
	assert.Equal(t, "white", found.Items[0].Variant["color"])
	assert.Equal(t, float64(40), found.Items[0].Variant["watts"])
	assert.True(t, decimal.NewFromInt(300).Equal(found.Total))

	stranger, err := repo.GetForUser(ctx, order.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, stranger)

	list, total, err := repo.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 1)
}

func TestOrderRepo_CreateFailures(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	products := NewProductRepository(testPool)

	user := seedUser(t, "buyer")
	category := seedCategory(t, "Lamps")
	lamp := seedProduct(t, category.ID, nil, "150", 1)

	t.Run("insufficient stock", func(t *testing.T) {
		err := repo.Create(ctx, newTestOrder(user, "ORD00000002", lineFor(lamp, 2)))
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("price changed", func(t *testing.T) {
		line := lineFor(lamp, 1)
		line.ProductPrice = decimal.NewFromInt(99)
		err := repo.Create(ctx, newTestOrder(user, "ORD00000003", line))
		assert.ErrorIs(t, err, ErrProductChanged)
	})

	t.Run("duplicate order number", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newTestOrder(user, "ORD00000004", lineFor(lamp, 1))))
		err := repo.Create(ctx, newTestOrder(user, "ORD00000004", lineFor(lamp, 1)))
		assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
	})

	stored, err := products.GetByID(ctx, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
	assert.Equal(t, 1, stored.Sold)
}

func TestOrderRepo_UpdateStatus(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	products := NewProductRepository(testPool)

	user := seedUser(t, "buyer")
	lamp := seedProduct(t, seedCategory(t, "Lamps").ID, nil, "10", 4)

	order := newTestOrder(user, "ORD00000005", lineFor(lamp, 3))
	require.NoError(t, repo.Create(ctx, order))

	order.Status = model.OrderStatusConfirmed
	require.NoError(t, repo.UpdateStatus(ctx, order, model.OrderStatusPending))

	order.Status = model.OrderStatusProcessing
	assert.ErrorIs(t, repo.UpdateStatus(ctx, order, model.OrderStatusPending), ErrStatusChanged)

	order.Status = model.OrderStatusCancelled
	require.NoError(t, repo.UpdateStatus(ctx, order, model.OrderStatusConfirmed))

	stored, err := products.GetByID(ctx, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)
	assert.Equal(t, 0, stored.Sold)

	found, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, found.Status)
}

func TestOrderRepo_ShopScopeAndStats(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	orders := NewOrderRepository(testPool)
	shops := NewShopRepository(testPool)

	user := seedUser(t, "buyer")
	category := seedCategory(t, "Lamps")
	shop := seedShop(t, seedUser(t, "seller"), "lamps")
	rival := seedShop(t, seedUser(t, "rival"), "rival")
	lamp := seedProduct(t, category.ID, shop, "100", 10)
	vase := seedProduct(t, category.ID, rival, "40", 10)

	mixed := newTestOrder(user, "ORD00000006", lineFor(lamp, 1), lineFor(vase, 1))
	require.NoError(t, orders.Create(ctx, mixed))
	rivalOnly := newTestOrder(user, "ORD00000007", lineFor(vase, 2))
	require.NoError(t, orders.Create(ctx, rivalOnly))

	list, total, err := orders.ListByShop(ctx, shop.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, mixed.ID, list[0].ID)

	found, err := orders.GetForShop(ctx, rivalOnly.ID, shop.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	mixed.Status = model.OrderStatusDelivered
	mixed.PaymentStatus = model.PaymentStatusPaid
	require.NoError(t, orders.UpdateStatus(ctx, mixed, model.OrderStatusPending))

	stats, err := shops.Stats(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalOrders)
	assert.Equal(t, 0, stats.PendingOrders)
	assert.True(t, mixed.Total.Equal(stats.TotalRevenue))

	stats, err = shops.Stats(ctx, rival.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
}

func TestShopRepo_RecomputeCounters(t *testing.T) {
	cleanupAll(t)
	ctx := context.Background()
	shops := NewShopRepository(testPool)

	user := seedUser(t, "buyer")
	shop := seedShop(t, seedUser(t, "seller"), "lamps")
	lamp := seedProduct(t, seedCategory(t, "Lamps").ID, shop, "100", 10)
	require.NoError(t, NewOrderRepository(testPool).Create(ctx, newTestOrder(user, "ORD00000008", lineFor(lamp, 4))))

	n, err := shops.RecomputeCounters(ctx, []uuid.UUID{lamp.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := shops.GetByID(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.TotalProducts)
	assert.Equal(t, 4, found.TotalSold)

	n, err = shops.RecomputeCounters(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
