// Command createsuperuser bootstraps the admin account: it ensures the
// built-in roles exist and creates (or promotes) a superuser with the login
// and password from DEFAULT_ADMIN_LOGIN / DEFAULT_ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	login := os.Getenv("DEFAULT_ADMIN_LOGIN")
	password := os.Getenv("DEFAULT_ADMIN_PASSWORD")
	if login == "" || password == "" {
		log.Fatal("DEFAULT_ADMIN_LOGIN and DEFAULT_ADMIN_PASSWORD are required")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Built-in roles must exist before anyone can be promoted.
	for _, name := range []string{model.RoleGuest, model.RoleStaff, model.RoleSuperuser} {
		if _, err := roles.Create(ctx, name, ""); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			log.Fatalf("ensure role %q: %v", name, err)
		}
	}

	user, err := users.GetByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		hash, err := utils.HashPassword(password, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		id, err := users.Create(ctx, login, hash, "")
		if err != nil {
			log.Fatalf("create user: %v", err)
		}
		user, err = users.GetByID(ctx, id)
		if err != nil {
			log.Fatalf("load user: %v", err)
		}
		log.Printf("created user %q (id=%d)", login, id)
	} else if err != nil {
		log.Fatalf("lookup user: %v", err)
	}

	superuser, err := roles.GetByName(ctx, model.RoleSuperuser)
	if err != nil {
		log.Fatalf("lookup superuser role: %v", err)
	}
	if err := users.AddRole(ctx, user.ID, superuser.ID); err != nil {
		log.Fatalf("assign superuser role: %v", err)
	}
	log.Printf("user %q is a superuser", login)
}
