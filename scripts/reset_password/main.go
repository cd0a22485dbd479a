// Resets a user's password directly in the database. Useful when the seeded
// admin credentials were changed and lost.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scavlog/models"
)

func main() {
	username := flag.String("username", "admin", "username to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *password == "" {
		log.Fatal("--password is required")
	}
	if len(*password) < 6 {
		log.Fatal("password too short (min 6)")
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	var user models.User
	if err := db.Where("username = ?", *username).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	if err := db.Model(&user).Update("hashed_password", hash).Error; err != nil {
		log.Fatalf("update failed: %v", err)
	}
	fmt.Printf("password reset for %s\n", user.Username)
}
