//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/category"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/reminder"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/visitor"
	"github.com/MabsRahman/bamboo-shop-api/internal/notify"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "bamboo",
				"POSTGRES_PASSWORD": "bamboo",
				"POSTGRES_DB":       "bamboo",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pg.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	url := fmt.Sprintf("postgres://bamboo:bamboo@%s:%s/bamboo?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	// Migrations must be rerunnable.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate twice: %v", err)
	}

	return m.Run()
}

func createUser(t *testing.T, email string) *user.User {
	t.Helper()
	u := &user.User{Name: "Test User", Email: email, PasswordHash: "x", IsVerified: true}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), u))
	return u
}

func createProduct(t *testing.T, name string, price int64, stock int) *product.Product {
	t.Helper()
	ctx := context.Background()

	c := &category.Category{Name: name + " category", Slug: name + "-category"}
	require.NoError(t, NewCategoryRepository(testPool).Create(ctx, c))

	p := &product.Product{
		Name:       name,
		Slug:       name,
		Price:      decimal.NewFromInt(price),
		Stock:      stock,
		CategoryID: &c.ID,
		Tags:       []string{"test"},
		Images:     []product.Image{{URL: "https://img/" + name, IsPrimary: true}},
	}
	require.NoError(t, NewProductRepository(testPool).Create(ctx, p))
	return p
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	u := createUser(t, "dup@bamboo.test")
	require.NotZero(t, u.ID)

	err := repo.Create(ctx, &user.User{Name: "Other", Email: "dup@bamboo.test", PasswordHash: "y"})
	require.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "dup@bamboo.test")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, 1<<40)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()

	u := createUser(t, "buyer@bamboo.test")
	require.NoError(t, NewAddressRepository(testPool).Create(ctx, &address.Address{
		UserID: u.ID, FullName: "Buyer", Phone: "01700000000", Line1: "Road 1",
		City: "Dhaka", PostalCode: "1207", Country: "BD", IsDefault: true,
	}))

	p := createProduct(t, "board", 100, 3)
	productRepo := NewProductRepository(testPool)
	require.NoError(t, NewDiscountRepository(testPool).Create(ctx, &discount.Discount{
		Discount:  pricing.Discount{Kind: pricing.Percentage, Value: decimal.NewFromInt(10)},
		ProductID: p.ID,
	}))

	limit := 1
	couponRepo := NewCouponRepository(testPool)
	require.NoError(t, couponRepo.Upsert(ctx, &coupon.Coupon{
		Code: "ONCE5", Kind: pricing.Fixed, Value: decimal.NewFromInt(5), UsageLimit: &limit,
	}))

	mailer, err := notify.NewMailer(notify.LogTransport{}, "http://localhost:3000")
	require.NoError(t, err)
	orderRepo := NewOrderRepository(testPool)
	svc := order.NewService(order.Deps{
		Addresses: NewAddressRepository(testPool),
		Products:  productRepo,
		Pricing:   pricing.NewResolver(),
		Coupons:   coupon.NewRepoValidator(couponRepo),
		Orders:    orderRepo,
		Users:     NewUserRepository(testPool),
		Notifier:  mailer,
	})

	o, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:        u.ID,
		Items:         []order.LineRequest{{ProductID: p.ID, Quantity: 2}},
		CouponCode:    "ONCE5",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	assert.Equal(t, "180", o.TotalAmount.String())
	assert.Equal(t, "5", o.DiscountTotal.String())
	assert.Equal(t, "175", o.FinalAmount.String())
	require.NotNil(t, o.Payment)
	assert.Equal(t, payment.StatusSuccess, o.Payment.Status)

	stored, err := orderRepo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "board", stored.Items[0].ProductName)
	assert.Equal(t, 2, stored.Items[0].Quantity)

	after, err := productRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Stock)

	c, err := couponRepo.FindByCode(ctx, "ONCE5")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)

	t.Run("CouponExhausted", func(t *testing.T) {
		_, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
			UserID:        u.ID,
			Items:         []order.LineRequest{{ProductID: p.ID, Quantity: 1}},
			CouponCode:    "ONCE5",
			PaymentMethod: "COD",
		})
		require.ErrorIs(t, err, coupon.ErrUsageLimitReached)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		_, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
			UserID:        u.ID,
			Items:         []order.LineRequest{{ProductID: p.ID, Quantity: 2}},
			PaymentMethod: "COD",
		})
		var stockErr *order.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "board", stockErr.ProductName)

		left, err := productRepo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, left.Stock)
	})
	t.Run("DeleteOrderedProduct", func(t *testing.T) {
		require.ErrorIs(t, productRepo.Delete(ctx, p.ID), product.ErrInUse)

		kept, err := productRepo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, kept.ID)
	})
}

func TestRedeemCouponRace(t *testing.T) {
	ctx := context.Background()
	limit := 1
	repo := NewCouponRepository(testPool)
	c := &coupon.Coupon{Code: "RACE", Kind: pricing.Percentage, Value: decimal.NewFromInt(10), UsageLimit: &limit}
	require.NoError(t, repo.Upsert(ctx, c))

	orders := NewOrderRepository(testPool)
	redeem := func() error {
		return orders.InTx(ctx, func(ctx context.Context, tx order.Tx) error {
			return tx.RedeemCoupon(ctx, c.ID)
		})
	}
	require.NoError(t, redeem())
	require.ErrorIs(t, redeem(), coupon.ErrUsageLimitReached)
}

func TestAddressDefaultRace(t *testing.T) {
	ctx := context.Background()
	repo := NewAddressRepository(testPool)
	u := createUser(t, "mover@bamboo.test")

	ids := make([]int64, 2)
	for i := range ids {
		a := &address.Address{
			UserID: u.ID, FullName: "Mover", Phone: "01700000001", Line1: fmt.Sprintf("Road %d", i),
			City: "Dhaka", Country: "BD",
		}
		require.NoError(t, repo.Create(ctx, a))
		ids[i] = a.ID
	}

	var g errgroup.Group
	for i := range 20 {
		id := ids[i%2]
		g.Go(func() error {
			if err := repo.SetDefault(ctx, u.ID, id); err != nil && !errors.Is(err, address.ErrDefaultConflict) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	list, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestReminderLedger(t *testing.T) {
	ctx := context.Background()
	u := createUser(t, "cart@bamboo.test")
	p := createProduct(t, "brush", 4, 10)

	carts := NewCartRepository(testPool)
	line, err := carts.Add(ctx, u.ID, p.ID, 2)
	require.NoError(t, err)

	active, err := carts.ActiveCarts(ctx)
	require.NoError(t, err)
	var found *reminder.Cart
	for i := range active {
		if active[i].ID == line.ID {
			found = &active[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "brush", found.ProductName)

	entry := reminder.Entry{CartID: line.ID, Bucket: 4, UpdatedAt: found.UpdatedAt}
	claimed, err := carts.Claim(ctx, []reminder.Entry{entry})
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	claimed, err = carts.Claim(ctx, []reminder.Entry{entry})
	require.NoError(t, err)
	assert.Empty(t, claimed, "same bucket and update time is claimed once")

	require.NoError(t, carts.Release(ctx, []reminder.Entry{entry}))
	claimed, err = carts.Claim(ctx, []reminder.Entry{entry})
	require.NoError(t, err)
	assert.Len(t, claimed, 1)

	rc, err := carts.Recipient(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cart@bamboo.test", rc.Email)
}

func TestVisitorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewVisitorRepository(testPool)

	before, err := repo.Count(ctx)
	require.NoError(t, err)

	for _, path := range []string{"/products", "/blog", "/products"} {
		require.NoError(t, repo.Create(ctx, &visitor.Visit{IP: "10.0.0.1", Path: path, Country: "BD"}))
	}

	after, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+3, after)

	visits, err := repo.List(ctx, visitor.Filter{Path: "/products", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, visits, 2)
}
