// Command seed loads the demo fixtures: an admin, a regular user and a
// handful of example books owned by the regular user.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	database "github.com/Phelioume11/SymfonProject/app/db"
	"github.com/Phelioume11/SymfonProject/config"
	"github.com/Phelioume11/SymfonProject/internal/slugger"
	"github.com/Phelioume11/SymfonProject/internal/types"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build database config: %v", err)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	adminID, err := upsertUser(ctx, pool, "admin", "admin@bibliotheque.fr", "password", types.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	userID, err := upsertUser(ctx, pool, "user", "user@bibliotheque.fr", "password", types.RoleUser)
	if err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}
	log.Printf("Seeded users: admin=%s user=%s", adminID, userID)

	count := 0
	for i := 1; i <= 6; i++ {
		title := fmt.Sprintf("Livre exemple %d", i)
		desc := fmt.Sprintf("Description du livre exemple %d", i)
		genre := types.Genres[(i-1)%len(types.Genres)]

		tag, err := pool.Exec(ctx,
			`INSERT INTO books (title, author, description, genre, slug, user_id)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (slug) DO NOTHING`,
			title, fmt.Sprintf("Auteur %d", i), desc, genre, slugger.Slugify(title), userID)
		if err != nil {
			log.Fatalf("Failed to seed book %q: %v", title, err)
		}
		count += int(tag.RowsAffected())
	}

	log.Printf("Seeded %d new books", count)
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, username, email, password, role string) (uuid.UUID, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET username = EXCLUDED.username
		 RETURNING id`,
		username, email, string(hashed), role).Scan(&id)
	return id, err
}
