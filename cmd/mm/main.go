package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"maintline/internal/app"
	"maintline/internal/db"
	"maintline/internal/domain"
	"maintline/internal/migrate"
	"maintline/internal/repo"
	"maintline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "mm",
	Short: "Maintline CLI",
	Long: `Maintline tracks maintenance requests between agents and Manie.
Agents file requests, Manie inspects and quotes, agents accept or reject,
and the job walks through deposit, onsite work, documentation and final
payment. Every step is audited and both sides are notified by email.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MAINTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (maintline.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(jobCmd())
}

func withEnv(ctx context.Context, fn func(ctx context.Context, env *app.Env) error) error {
	env, err := app.Open(viper.GetString("workspace"), viper.GetString("config"))
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				cfg := env.Config
				secret := os.Getenv("MAINTLINE_JWT_SECRET")
				if secret == "" {
					secret = cfg.Auth.JWTSecret
				}
				if secret == "" {
					return fmt.Errorf("MAINTLINE_JWT_SECRET or auth.jwt_secret is required for bearer auth")
				}
				handler, err := server.New(server.Config{
					Engine:   env.Engine,
					BasePath: cfg.HTTP.BasePath,
					Auth: server.AuthConfig{
						JWTSecret:     secret,
						TokenTTLHours: cfg.TokenTTLHoursOrDefault(),
					},
				})
				if err != nil {
					return err
				}
				listenAddr := addr
				if listenAddr == "" {
					listenAddr = cfg.HTTP.Addr
				}
				srv := &http.Server{Addr: listenAddr, Handler: handler}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				fmt.Printf("Serving Maintline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
					listenAddr, cfg.HTTP.BasePath, cfg.HTTP.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage user accounts"}
	user.AddCommand(userAddCmd())
	user.AddCommand(userListCmd())
	return user
}

func userAddCmd() *cobra.Command {
	var username, email, role, password string
	var verified bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.Role(role)
			if !r.Valid() {
				return fmt.Errorf("role must be one of agent, manie, admin")
			}
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				u := domain.User{
					ID:            uuid.NewString(),
					Username:      username,
					Email:         email,
					EmailVerified: verified,
					PasswordHash:  string(hash),
					Role:          r,
					CreatedAt:     time.Now().UTC().Format(time.RFC3339),
				}
				if err := env.Repo.InsertUser(ctx, u); err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "unique username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "agent", "agent, manie or admin")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().BoolVar(&verified, "verified", false, "mark the email address as verified")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				users, err := env.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Username", "Role", "Email", "Verified"})
				for _, u := range users {
					t.AppendRow(table.Row{u.Username, u.Role, u.Email, u.EmailVerified})
				}
				t.Render()
				return nil
			})
		},
	}
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var username, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				u, err := env.Repo.GetUserByUsername(ctx, username)
				if err != nil {
					return err
				}
				raw, err := randomKey()
				if err != nil {
					return err
				}
				k := domain.APIKey{
					ID:        uuid.NewString(),
					UserID:    u.ID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := env.Repo.InsertAPIKey(ctx, k); err != nil {
					return err
				}
				// The raw key is shown once and never stored.
				fmt.Println(raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user the key belongs to")
	cmd.Flags().StringVar(&name, "name", "", "optional key label")
	return cmd
}

func randomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "mk_" + hex.EncodeToString(buf), nil
}

func jobCmd() *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Inspect maintenance jobs"}
	job.AddCommand(jobListCmd())
	return job
}

func jobListCmd() *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List maintenance jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				agentID := ""
				if agent != "" {
					u, err := env.Repo.GetUserByUsername(ctx, agent)
					if err != nil {
						return err
					}
					agentID = u.ID
				}
				jobs, err := env.Repo.ListJobs(ctx, agentID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(jobs)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Number", "Agent", "Date", "Status", "Complete"})
				for _, j := range jobs {
					complete := "No"
					if j.Complete() {
						complete = "Yes"
					}
					t.AppendRow(table.Row{j.Number, j.AgentID, j.Date, j.Status.Label(), complete})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "filter by agent username")
	return cmd
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
