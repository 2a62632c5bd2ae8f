package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/argon2"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/apikey"
)

var (
	demoOwnerID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	secondOwnerID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	demoVaultID = uuid.MustParse("00000000-0000-0000-0000-000000000101")
)

func main() {
	env := getEnv("GVX_ENV", "dev")
	if env != "dev" && env != "test" {
		log.Fatalf("refusing to seed: GVX_ENV must be 'dev' or 'test' (got '%s')", env)
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "guardia_vault")
	user := getEnv("POSTGRES_USER", "gvx")
	password := getEnv("POSTGRES_PASSWORD", "gvx")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, db, sslmode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	fmt.Println("Seeding database...")

	if err := seedDemoVault(ctx, pool); err != nil {
		log.Fatalf("seed demo vault: %v", err)
	}
	fmt.Println("✓ Demo vault seeded")

	if os.Getenv("SEED_TESTDATA") == "1" {
		if err := seedTestData(ctx, pool); err != nil {
			log.Fatalf("seed test data: %v", err)
		}
		fmt.Println("✓ Test data seeded")
	}

	executorKey, _, executorHash, err := apikey.Generate(env)
	if err != nil {
		log.Fatalf("generate executor key: %v", err)
	}

	// Owner accounts live in the external auth service; print an argon2id
	// hash operators can load into its users table.
	demoHash, err := hashPassword("demo123")
	if err != nil {
		log.Fatalf("hash demo password: %v", err)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nDemo Owner (register with the auth service):")
	fmt.Printf("  Owner ID: %s\n", demoOwnerID)
	fmt.Println("  Password: demo123")
	fmt.Printf("  Argon2id Hash: %s\n", demoHash)

	if env == "dev" {
		fmt.Println("\nExecutor API Key (DEV ONLY):")
		fmt.Printf("  Key:  %s\n", executorKey)
		fmt.Printf("  Hash: %s  (set GVX_EXECUTOR_KEY_HASH)\n", executorHash)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func hashPassword(password string) (string, error) {
	const (
		memory      = 64 * 1024
		iterations  = 3
		parallelism = 2
		saltLength  = 16
		keyLength   = 32
	)

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", memory, iterations, parallelism, b64Salt, b64Hash), nil
}

func seedDemoVault(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now()

	_, err := pool.Exec(ctx, `
		INSERT INTO vaults (id, owner_id, name, status, misconfigured, inactivity_seconds, bypass_seconds,
			quorum_threshold_bps, cycle_id, last_check_in_at, warning_since, created_at, updated_at)
		VALUES ($1, $2, $3, 'active', FALSE, $4, $5, $6, 1, $7, NULL, $7, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = 'active',
		    misconfigured = FALSE,
		    last_check_in_at = EXCLUDED.last_check_in_at,
		    warning_since = NULL,
		    updated_at = EXCLUDED.updated_at
	`, demoVaultID, demoOwnerID, "demo estate",
		int64((30*24*time.Hour)/time.Second), int64((7*24*time.Hour)/time.Second), 5000, now)
	if err != nil {
		return err
	}

	beneficiaries := []struct {
		id     uuid.UUID
		name   string
		wallet string
		bps    int
	}{
		{uuid.MustParse("00000000-0000-0000-0000-000000000201"), "heir-one", "0x1111111111111111111111111111111111111111", 6000},
		{uuid.MustParse("00000000-0000-0000-0000-000000000202"), "heir-two", "0x2222222222222222222222222222222222222222", 4000},
	}
	for _, b := range beneficiaries {
		_, err := pool.Exec(ctx, `
			INSERT INTO beneficiaries (id, vault_id, name, contact, wallet_address, allocation_bps, revoked, created_at, updated_at)
			VALUES ($1, $2, $3, '', $4, $5, FALSE, $6, $6)
			ON CONFLICT (id) DO UPDATE
			SET allocation_bps = EXCLUDED.allocation_bps,
			    revoked = FALSE,
			    updated_at = EXCLUDED.updated_at
		`, b.id, demoVaultID, b.name, b.wallet, b.bps, now)
		if err != nil {
			return err
		}
	}

	guardians := []struct {
		id     uuid.UUID
		name   string
		status string
		weight int
	}{
		{uuid.MustParse("00000000-0000-0000-0000-000000000301"), "guardian-alpha", "accepted", 2},
		{uuid.MustParse("00000000-0000-0000-0000-000000000302"), "guardian-beta", "accepted", 1},
		{uuid.MustParse("00000000-0000-0000-0000-000000000303"), "guardian-gamma", "invited", 1},
	}
	for _, g := range guardians {
		_, err := pool.Exec(ctx, `
			INSERT INTO guardians (id, vault_id, name, contact, status, weight, created_at, updated_at)
			VALUES ($1, $2, $3, '', $4, $5, $6, $6)
			ON CONFLICT (id) DO UPDATE
			SET status = EXCLUDED.status,
			    weight = EXCLUDED.weight,
			    updated_at = EXCLUDED.updated_at
		`, g.id, demoVaultID, g.name, g.status, g.weight, now)
		if err != nil {
			return err
		}
	}

	return nil
}
