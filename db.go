package main

import (
	"log"
	"os"
	"strings"
	"time"

	"scavlog/models"
	"scavlog/pkg/catalog"
	"scavlog/pkg/market"
	"scavlog/pkg/ocr"
	"scavlog/pkg/scavcase"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	db  *gorm.DB
	mkt *market.Client
	cat *catalog.Cache
	svc *scavcase.Service
	rec ocr.Recognizer
)

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Ensure the roles master table exists first and seed it so users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}
	seedRoles()

	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}
		if err := db.AutoMigrate(&models.TarkovItem{}); err != nil {
			log.Printf("migration warning (tarkov_items): %v", err)
		}
		if err := db.AutoMigrate(&models.ScavCase{}); err != nil {
			log.Printf("migration warning (scav_cases): %v", err)
		}
		if err := db.AutoMigrate(&models.ScavCaseItem{}); err != nil {
			log.Printf("migration warning (scav_case_items): %v", err)
		}
	}
	seedDB()
}

// initServices wires the market client, catalog cache, recognizer and the
// case service. MARKET_ENDPOINT overrides the tarkov.dev endpoint (used by
// integration tests to point at a stub).
func initServices() {
	mkt = market.NewClient(os.Getenv("MARKET_ENDPOINT"))
	cat = catalog.New(db, 15*time.Minute)
	svc = &scavcase.Service{DB: db, Prices: mkt}
	rec = ocr.Tesseract{}
	ensureUploadBase()
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB() {
	seedRoles()

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		// find administrator role id
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin123")
	}

	var itemCount int64
	db.Model(&models.TarkovItem{}).Count(&itemCount)
	if itemCount == 0 {
		log.Println("tarkov_items is empty; run ./cmd/fetch_items to seed the catalog")
	}
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for uploaded screenshots (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
