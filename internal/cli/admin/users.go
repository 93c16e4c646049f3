package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/lexora-ai/lexora/internal/config"
	"github.com/lexora-ai/lexora/internal/database"
	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/repository"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Create users and look them up",
	}

	cmd.AddCommand(UserCreateCmd())
	cmd.AddCommand(UserGetCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a new user",
		Long:  "Create a new user with the specified username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runUserCreate(args[0], admin, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")

	return cmd
}

func runUserCreate(username string, admin bool, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	role := domain.RoleMember
	if admin {
		role = domain.RoleAdmin
	}

	user := &domain.User{
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	id, err := userRepo.Create(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"username":   user.Username,
			"role":       user.Role,
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("User created: %s (id: %d, role: %s)\n", user.Username, user.ID, user.Role)
	}

	return nil
}

func UserGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <username>",
		Short: "Look up a user by username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runUserGet(args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runUserGet(username, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"username":   user.Username,
			"role":       user.Role,
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("%d: %s (role: %s, created: %s)\n", user.ID, user.Username, user.Role, user.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}
