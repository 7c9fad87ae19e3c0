package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

// NewReconcileCmd removes questions whose quiz was deleted by an interrupted cascade.
func NewReconcileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Delete questions left behind by deleted quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := zap.NewNop()
			b, err := openBackend(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer b.Close()

			removed, err := app.NewQuizService(b.quizzes, b.cache, log).ReconcileOrphans(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("removed %d orphaned questions\n", removed)
			return nil
		},
	}
}

// NewSetRoleCmd changes a user's role. It is the only way to create an admin.
func NewSetRoleCmd(configPath *string) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of a registered user",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.Role(role)
			if r != domain.RoleUser && r != domain.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", domain.RoleUser, domain.RoleAdmin)
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			b, err := openBackend(cmd.Context(), cfg, zap.NewNop(), false)
			if err != nil {
				return err
			}
			defer b.Close()

			user, err := b.roles.SetRole(cmd.Context(), email, r)
			if err != nil {
				return err
			}
			cmd.Printf("%s (%s) is now %s\n", user.Username, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "user or admin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
