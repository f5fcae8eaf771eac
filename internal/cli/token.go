package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"carmarket/internal/shared/auth"

	"github.com/spf13/cobra"
)

// NewTokenCommand создает команды token issue и token verify
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or verify JWT tokens with the configured secret",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts))
	cmd.AddCommand(newTokenVerifyCommand(rootOpts))
	return cmd
}

func newTokenIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var userID, email, role string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token for a user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			token, err := auth.NewJWTService(cfg.JWT).GenerateToken(userID, email, r)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "user id (required)")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleUser), "user|admin")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

// verifiedToken — вывод token verify
type verifiedToken struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newTokenVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			p, err := auth.NewJWTService(cfg.JWT).Resolve(args[0])
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verifiedToken{
				UserID:    p.UserID,
				Email:     p.Email,
				Role:      p.Role,
				ExpiresAt: p.ExpiresAt,
			})
		},
	}
}
