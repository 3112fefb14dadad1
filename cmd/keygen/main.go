package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/af-corp/aegis-modelplan/internal/auth"
	"github.com/af-corp/aegis-modelplan/internal/config"
)

func main() {
	name := flag.String("name", "", "human-friendly key name (required)")
	rpm := flag.Int("rpm", 0, "per-key requests per minute on admin routes (0 = service default)")
	expires := flag.String("expires", "365d", "expiry duration (e.g., 365d, 720h)")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -name is required")
		os.Exit(1)
	}

	_ = godotenv.Load()

	rawKey, err := auth.GenerateKey()
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}

	dur, err := auth.ParseDuration(*expires)
	if err != nil {
		log.Fatalf("invalid expires: %v", err)
	}
	expiresAt := time.Now().Add(dur)

	var rpmLimit *int
	if *rpm > 0 {
		rpmLimit = rpm
	}

	dsn := *dbURL
	if dsn == "" {
		dsn = envDSN()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	keyID, err := auth.NewCachedKeyStore(pool, nil).Insert(ctx, rawKey, *name, rpmLimit, expiresAt)
	if err != nil {
		log.Fatalf("failed to insert key: %v", err)
	}

	fmt.Println("=== modelplan Admin Key Generated ===")
	fmt.Println()
	fmt.Printf("  Key ID:      %s\n", keyID)
	fmt.Printf("  Key Prefix:  %s\n", auth.KeyPrefix(rawKey))
	fmt.Printf("  Name:        %s\n", *name)
	if rpmLimit != nil {
		fmt.Printf("  RPM Limit:   %d\n", *rpmLimit)
	}
	fmt.Printf("  Expires:     %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("  Admin Key (save this, it will NOT be shown again):")
	fmt.Printf("  %s\n", rawKey)
	fmt.Println()
	fmt.Println("=====================================")
}

// envDSN builds a DSN from DATABASE_URL or the DB_* variables.
func envDSN() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	port, err := strconv.Atoi(envOrDefault("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid DB_PORT: %v", err)
	}
	return config.DatabaseConfig{
		Host:     envOrDefault("DB_HOST", "localhost"),
		Port:     port,
		User:     envOrDefault("DB_USER", "modelplan"),
		Password: envOrDefault("DB_PASSWORD", "modelplan-dev"),
		Name:     envOrDefault("DB_NAME", "modelplan"),
	}.DSN()
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
