package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	roleFlag     string
	loginFlag    string
	passwordFlag string
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Sign in and persist the session for the next serve",
	Example: "  storefront login --email kiran@example.com\n  storefront login --role admin --email admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *session.Store) error {
			password := passwordFlag
			if password == "" {
				password = os.Getenv("STOREFRONT_PASSWORD")
			}
			if loginFlag == "" || password == "" {
				return fmt.Errorf("login and password are required")
			}
			if err := s.SignIn(ctx, loginFlag, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", s.Role())
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *session.Store) error {
			if err := s.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed out %s\n", s.Role())
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx = logging.IntoContext(ctx, rt.log)

		role, err := session.StoredRole(ctx, rt.storage)
		if err != nil {
			return err
		}
		customer, admin := rt.stores()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "ACTIVE ROLE\t%s\n", orDash(string(role)))
		fmt.Fprintln(w, "ROLE\tSIGNED IN\tWHO\tEXPIRES")
		for _, s := range []*session.Store{customer, admin} {
			if err := s.Restore(ctx); err != nil {
				return err
			}
			cur := s.Current()
			expires := "-"
			if exp, ok := session.ExpiresAt(cur.Token); ok {
				expires = exp.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", s.Role(), cur.Authenticated(), orDash(who(cur)), expires)
		}
		return w.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, logoutCmd} {
		c.Flags().StringVar(&roleFlag, "role", "customer", "session role: customer or admin")
	}
	loginCmd.Flags().StringVar(&loginFlag, "email", "", "customer email or admin username")
	loginCmd.Flags().StringVar(&passwordFlag, "password", "", "password (default $STOREFRONT_PASSWORD)")
}

func withStore(ctx context.Context, fn func(context.Context, *session.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	role, err := parseRole(roleFlag)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx = logging.IntoContext(ctx, rt.log)

	customer, admin := rt.stores()
	s := customer
	if role == models.RoleAdmin {
		s = admin
	}
	if err := s.Restore(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

func parseRole(v string) (models.Role, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", string(models.RoleCustomer):
		return models.RoleCustomer, nil
	case string(models.RoleAdmin):
		return models.RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", v)
}

func who(s models.Session) string {
	switch {
	case s.Email != "":
		return s.Email
	case s.Name != "":
		return s.Name
	case s.CustomerID != nil:
		return fmt.Sprintf("customer #%d", *s.CustomerID)
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
