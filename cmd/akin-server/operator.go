package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/akin/akin/internal/config"
	"github.com/akin/akin/internal/domain/scheduling"
	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/internal/platform/session"
)

// operatorKey is the storage key of the CLI's own session.
const operatorKey = "operator"

// operator is the command-line client: a backend client and a file-backed
// session rehydrated on every invocation.
type operator struct {
	client *backend.Client
	store  *session.Store
}

func operatorSessionDir() (string, error) {
	if dir := os.Getenv("AKIN_CLI_SESSION_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "akin", "sessions"), nil
}

func openOperator(ctx context.Context) (*operator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	client, err := backend.New(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		return nil, err
	}
	dir, err := operatorSessionDir()
	if err != nil {
		return nil, err
	}
	storage, err := session.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}
	store, err := session.Open(ctx, storage, operatorKey)
	if err != nil {
		return nil, err
	}
	return &operator{client: client, store: store}, nil
}

// context returns ctx carrying the session as backend credentials and as
// the request principal.
func (o *operator) context(ctx context.Context) (context.Context, error) {
	st := o.store.State()
	if !st.IsAuthenticated {
		return nil, fmt.Errorf("not logged in: run akin-server login")
	}
	ctx = backend.WithCredentials(ctx, o.store)
	return auth.WithPrincipal(ctx, auth.Principal{
		UserID: st.User.ID,
		Name:   st.User.Name,
		Role:   st.User.Role,
		Token:  st.Tokens.AccessToken,
	}), nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the lab backend and keep the session on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			op, err := openOperator(ctx)
			if err != nil {
				return err
			}
			tokens, err := op.client.SignIn(ctx, backend.SignInInput{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			profile, err := op.client.Me(ctx, backend.StaticToken(tokens.AccessToken))
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			user := profile.User()
			if err := op.store.Login(ctx, tokens, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Name, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			op, err := openOperator(ctx)
			if err != nil {
				return err
			}
			if !op.store.State().IsAuthenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err := op.client.Logout(ctx, op.store); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: backend logout failed: %v\n", err)
			}
			if err := op.store.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			op, err := openOperator(ctx)
			if err != nil {
				return err
			}
			if _, err := op.context(ctx); err != nil {
				return err
			}
			profile, err := op.client.Me(ctx, op.store)
			if err != nil {
				return err
			}
			user := profile.User()
			if err := op.store.SetUser(ctx, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n%s\n", user.Name, user.Email, user.Role.Label())
			return nil
		},
	}
}

func schedulesCmd() *cobra.Command {
	var completed bool
	flags := map[string]*string{}
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "List schedules through the filter engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for k, v := range flags {
				if *v != "" {
					q.Set(k, *v)
				}
			}
			spec, err := scheduling.ParseFilterSpec(q)
			if err != nil {
				return err
			}

			op, err := openOperator(cmdContext(cmd))
			if err != nil {
				return err
			}
			ctx, err := op.context(cmdContext(cmd))
			if err != nil {
				return err
			}

			svc := scheduling.NewService(scheduling.NewHTTPRepository(op.client))
			role := auth.RoleFromContext(ctx)
			var records []scheduling.Record
			if completed {
				records, err = svc.ListCompleted(ctx, spec, role)
			} else {
				records, err = svc.List(ctx, spec, role)
			}
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "List completed schedules")
	for _, name := range []string{"search", "dateFrom", "dateTo", "examStatus", "paymentStatus", "technician", "gender", "examType", "minPrice", "maxPrice"} {
		flags[name] = cmd.Flags().String(name, "", "Filter by "+name)
	}
	return cmd
}

func printRecords(cmd *cobra.Command, records []scheduling.Record) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPATIENT\tEXAMS\tTOTAL\tALLOCATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%t\n", r.ID, r.Patient.Name, len(r.ExamList), r.TotalPrice(), r.Allocated())
	}
	_ = w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d schedule(s)\n", len(records))
}
