package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/database"
	"github.com/stemsi/assessment-backend/internal/logger"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/repository"
	"github.com/stemsi/assessment-backend/internal/service"
)

// seed-users mirrors a handful of demo accounts into the users table and
// prints a bearer token for each, so a local stack can be exercised without
// the user service.
func main() {
	var (
		students    int
		instructors int
		tokenTTL    time.Duration
	)

	cmd := &cobra.Command{
		Use:          "seed-users",
		Short:        "Seed demo users and print their tokens",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), students, instructors, tokenTTL)
		},
	}
	cmd.Flags().IntVar(&students, "students", 10, "number of students to seed")
	cmd.Flags().IntVar(&instructors, "instructors", 1, "number of instructors to seed")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed tokens")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var names = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Lukman Hakim", "Maya Septiana", "Nanda Pratama",
}

func run(ctx context.Context, students, instructors int, tokenTTL time.Duration) error {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	auth := service.NewAuthService(cfg)

	seed := func(i int, role model.Role) error {
		first, last, _ := strings.Cut(names[i%len(names)], " ")
		u := &model.User{ID: uuid.New(), FirstName: first, LastName: last, Role: role}
		if err := users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed %s %s: %w", role, u.DisplayName(), err)
		}
		token, err := auth.IssueToken(u.ID, role, u.DisplayName(), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-16s %s\n%s\n\n", role, u.DisplayName(), u.ID, token)
		return nil
	}

	for i := 0; i < instructors; i++ {
		if err := seed(i, model.RoleInstructor); err != nil {
			return err
		}
	}
	for i := 0; i < students; i++ {
		if err := seed(instructors+i, model.RoleStudent); err != nil {
			return err
		}
	}

	log.Info().Int("students", students).Int("instructors", instructors).Msg("Seed completed")
	return nil
}
