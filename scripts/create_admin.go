// scripts/create_admin.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/patiponrmutl/thaimilitary/config"
	"github.com/patiponrmutl/thaimilitary/database"
	"github.com/patiponrmutl/thaimilitary/identity"
)

// สร้างบัญชีผู้ดูแลตาม auth.admin_email รหัสผ่านอ่านจาก TMO_ADMIN_PASSWORD
func main() {
	// โหลด config และเชื่อม DB แบบเดียวกับ serve
	v := config.New()
	if len(os.Args) > 1 {
		if err := config.ReadFile(v, os.Args[1]); err != nil {
			log.Fatalf("failed to read config: %v", err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	password := os.Getenv("TMO_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("TMO_ADMIN_PASSWORD is not set")
	}

	accounts := identity.NewAccounts(db, cfg.JWTSecret, cfg.TokenTTL)
	acc, err := accounts.Register(context.Background(), cfg.AdminEmail, password)
	if errors.Is(err, identity.ErrAccountExists) {
		fmt.Println("⚠️  Admin account already exists:", cfg.AdminEmail)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	fmt.Println("✅ Admin account created successfully!")
	fmt.Println("   Email:", acc.Email)
}
