package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"arremate-backend/internal/auth"
	"arremate-backend/internal/config"
)

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Finishing Floor for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("⚠️  WARNING: This will DELETE ALL FINISHING DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all arremate ledger entries")
	fmt.Println("  - Delete all work sessions")
	fmt.Println("  - Delete all system events")
	fmt.Println("  - Set every tiktik back to LIVRE")
	fmt.Println("  - Reset ID sequences")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("🔄 Resetting database...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	// Release workers first; they reference the sessions being dropped
	_, err = tx.Exec(ctx, `
		UPDATE tiktiks
		SET status_atual = 'LIVRE', data_ultima_mudanca_status = NOW(), id_sessao_trabalho_atual = NULL,
		    ultimo_alerta_ociosidade_em = NULL, ultimo_alerta_lentidao_em = NULL`)
	if err != nil {
		log.Fatalf("Failed to reset tiktiks: %v\n", err)
	}
	fmt.Println("  ✓ Tiktiks set to LIVRE")

	tables := []string{
		"arremates",
		"sessoes_trabalho_arremate",
		"eventos_sistema",
	}

	for _, table := range tables {
		_, err = tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			log.Fatalf("Failed to truncate %s: %v\n", table, err)
		}
		fmt.Printf("  ✓ Cleared %s\n", table)
	}

	// Ensure an admin can log in; password from RESET_ADMIN_PASSWORD
	password := getEnv("RESET_ADMIN_PASSWORD", "admin123")
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v\n", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO usuarios (nome, email, senha_hash, role, ativo)
		VALUES ($1, $2, $3, 'admin', TRUE)
		ON CONFLICT (email) DO UPDATE SET senha_hash = EXCLUDED.senha_hash, ativo = TRUE`,
		"Administrador", "admin@arremate.local", hash,
	)
	if err != nil {
		log.Fatalf("Failed to create admin user: %v\n", err)
	}
	fmt.Println("  ✓ Admin user ready")

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	fmt.Println()
	fmt.Println("✅ Database reset successful!")
	fmt.Println()
	fmt.Println("Admin credentials:")
	fmt.Println("  Email:    admin@arremate.local")
	fmt.Printf("  Password: %s\n", password)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
