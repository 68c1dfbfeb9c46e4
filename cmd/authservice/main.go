package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	identity "github.com/mledezma/go-identity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		log.Fatal("JWT_SIGNING_KEY is required")
	}

	db, err := openDatabase(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := createSchema(ctx, db); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	repo := identity.NewRepositoryManager(db, identity.SystemClock{})
	repo.MustValidate()

	signer := identity.NewTokenSigner(identity.TokenConfig{
		SigningKey: signingKey,
		Issuer:     envOr("JWT_ISSUER", "go-identity"),
		Audience:   splitCSV(os.Getenv("JWT_AUDIENCE")),
	}, identity.SystemClock{}, nil)

	auth := identity.NewCredentialAuthenticator(repo.Credentials(), signer)

	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		password := os.Getenv("ADMIN_PASSWORD")
		if err := identity.EnsureAdminCredential(ctx, repo.Credentials(), email, password, nil); err != nil {
			log.Fatalf("failed to seed admin credential: %v", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "authservice",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	identity.NewAuthController(auth).RegisterRoutes(app)

	addr := envOr("ADDR", ":8080")
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	if dsn == "" {
		dsn = "file:authservice.db?cache=shared&_pragma=foreign_keys(1)"
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*identity.Credential)(nil),
		(*identity.CredentialClaim)(nil),
		(*identity.RoleGrant)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
