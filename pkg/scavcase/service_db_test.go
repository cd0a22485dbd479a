package scavcase

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scavlog/models"
)

// openTestDB connects to the database named by DB_DSN. These tests are
// opt-in: set DB_DSN_TEST=1 and DB_DSN to run them.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, m := range []any{&models.User{}, &models.ScavCase{}, &models.ScavCaseItem{}} {
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

func testUser(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	u := models.User{Username: "svc-test-" + t.Name(), HashedPassword: []byte("x")}
	if err := db.Where("username = ?", u.Username).FirstOrCreate(&u).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return u.ID
}

func TestCreatePersistsCaseWithItems(t *testing.T) {
	db := openTestDB(t)
	svc := &Service{DB: db, Prices: stubPrices{prices: map[string]*int64{
		"gpu-id":   price(300000),
		"bolts-id": price(12000),
	}}}
	uid := testUser(t, db)

	sc, err := svc.Create(context.Background(), "₽15000", []Entry{
		{TarkovID: "gpu-id", Name: "Graphics Card", Quantity: 2},
		{TarkovID: "bolts-id", Name: "Bolts", Quantity: 3},
	}, uid)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var got models.ScavCase
	if err := db.Preload("Items").First(&got, sc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Cost != 15000 {
		t.Errorf("cost = %d, want 15000", got.Cost)
	}
	if got.NumberOfItems != 2 || len(got.Items) != 2 {
		t.Errorf("item counts: number_of_items=%d rows=%d", got.NumberOfItems, len(got.Items))
	}
	// return must equal the sum of price*quantity of the stored rows
	var sum int64
	for _, it := range got.Items {
		sum += it.Price * int64(it.Amount)
	}
	if got.Return != sum || got.Return != 2*300000+3*12000 {
		t.Errorf("return_value = %d, want %d (row sum %d)", got.Return, 2*300000+3*12000, sum)
	}
	if got.Profit() != got.Return-got.Cost {
		t.Errorf("profit = %d, want %d", got.Profit(), got.Return-got.Cost)
	}
}

func TestCreateDegradesToZeroPricesOnOutage(t *testing.T) {
	db := openTestDB(t)
	svc := &Service{DB: db, Prices: partialOutage{
		costPrice: price(250000),
	}}
	uid := testUser(t, db)

	sc, err := svc.Create(context.Background(), "moonshine", []Entry{
		{TarkovID: "gpu-id", Name: "Graphics Card", Quantity: 1},
	}, uid)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var got models.ScavCase
	if err := db.Preload("Items").First(&got, sc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Cost != 250000 {
		t.Errorf("cost = %d, want the resolved reference price", got.Cost)
	}
	if got.Return != 0 || got.Items[0].Price != 0 {
		t.Errorf("outage must degrade line prices to zero: return=%d price=%d", got.Return, got.Items[0].Price)
	}
}

// partialOutage resolves single-item lookups (the case cost) but fails bulk
// pricing, modelling a mid-request market outage.
type partialOutage struct {
	costPrice *int64
}

func (p partialOutage) ItemPrice(ctx context.Context, id string) (*int64, error) {
	return p.costPrice, nil
}

func (p partialOutage) ItemPrices(ctx context.Context, ids []string) (map[string]*int64, error) {
	return nil, errors.New("bulk pricing down")
}

func TestCreateRollsBackOnItemFailure(t *testing.T) {
	db := openTestDB(t)
	svc := &Service{DB: db, Prices: stubPrices{prices: map[string]*int64{}}}
	uid := testUser(t, db)

	var before int64
	db.Model(&models.ScavCase{}).Count(&before)

	// second row violates the name column length, failing mid-transaction
	_, err := svc.Create(context.Background(), "₽15000", []Entry{
		{TarkovID: "ok-id", Name: "Bolts", Quantity: 1},
		{TarkovID: "bad-id", Name: strings.Repeat("y", 300), Quantity: 1},
	}, uid)
	if err == nil {
		t.Fatal("expected the insert to fail")
	}

	var after int64
	db.Model(&models.ScavCase{}).Count(&after)
	if after != before {
		t.Errorf("partial case visible after rollback: %d -> %d cases", before, after)
	}
}

func TestUpdateItemsFreezesSurvivingPrices(t *testing.T) {
	db := openTestDB(t)
	svc := &Service{DB: db, Prices: stubPrices{prices: map[string]*int64{
		"gpu-id":   price(300000),
		"fuel-id":  price(90000),
		"bolts-id": price(12000),
	}}}
	uid := testUser(t, db)

	sc, err := svc.Create(context.Background(), "₽15000", []Entry{
		{TarkovID: "gpu-id", Name: "Graphics Card", Quantity: 1},
		{TarkovID: "bolts-id", Name: "Bolts", Quantity: 2},
	}, uid)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var created models.ScavCase
	if err := db.Preload("Items").First(&created, sc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	var gpuItemID uint
	for _, it := range created.Items {
		if it.TarkovID == "gpu-id" {
			gpuItemID = it.ID
		}
	}

	// the market moves; surviving lines must keep their frozen price
	svc.Prices = stubPrices{prices: map[string]*int64{
		"gpu-id":  price(999999),
		"fuel-id": price(90000),
	}}
	updated, err := svc.UpdateItems(context.Background(), sc.ID, []ItemEdit{
		{ID: gpuItemID, TarkovID: "gpu-id", Name: "Graphics Card", Quantity: 3},
		{TarkovID: "fuel-id", Name: "Expeditionary fuel tank", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("UpdateItems: %v", err)
	}

	var got models.ScavCase
	if err := db.Preload("Items").First(&got, sc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.NumberOfItems != 2 || len(got.Items) != 2 {
		t.Fatalf("item counts after edit: number_of_items=%d rows=%d", got.NumberOfItems, len(got.Items))
	}
	for _, it := range got.Items {
		switch it.TarkovID {
		case "gpu-id":
			if it.Price != 300000 || it.Amount != 3 {
				t.Errorf("surviving line: price=%d amount=%d, want frozen 300000 x3", it.Price, it.Amount)
			}
		case "fuel-id":
			if it.Price != 90000 {
				t.Errorf("new line priced at %d, want current market 90000", it.Price)
			}
		case "bolts-id":
			t.Error("removed line still present")
		}
	}
	want := int64(3*300000 + 1*90000)
	if updated.Return != want || got.Return != want {
		t.Errorf("return_value = %d (reloaded %d), want %d", updated.Return, got.Return, want)
	}
}

func TestCreateMixedPriceAvailability(t *testing.T) {
	db := openTestDB(t)
	// item A priced, item B unsellable: B records zero, A keeps its price
	svc := &Service{DB: db, Prices: stubPrices{prices: map[string]*int64{
		"a-id": price(50000),
	}}}
	uid := testUser(t, db)

	sc, err := svc.Create(context.Background(), "₽15000", []Entry{
		{TarkovID: "a-id", Name: "Item A", Quantity: 1},
		{TarkovID: "b-id", Name: "Item B", Quantity: 2},
	}, uid)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var got models.ScavCase
	if err := db.Preload("Items").First(&got, sc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Return != 50000 {
		t.Errorf("return_value = %d, want 50000", got.Return)
	}
	for _, it := range got.Items {
		if it.TarkovID == "b-id" && it.Price != 0 {
			t.Errorf("unsellable line priced at %d, want 0", it.Price)
		}
	}
}
