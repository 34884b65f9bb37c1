package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tickwatch/tickwatch/internal/api"
	"github.com/tickwatch/tickwatch/internal/auth"
	"github.com/tickwatch/tickwatch/internal/config"
	"github.com/tickwatch/tickwatch/internal/logger"
	"github.com/tickwatch/tickwatch/internal/model"
	"github.com/tickwatch/tickwatch/internal/reconcile"
	"github.com/tickwatch/tickwatch/internal/store"
	"github.com/tickwatch/tickwatch/internal/tui"
	"github.com/tickwatch/tickwatch/internal/ws"
)

var (
	flagJSON   bool
	flagTicket string
	flagCreate bool
)

var rootCmd = &cobra.Command{
	Use:   "tickwatch",
	Short: "Live dashboard for the ticket processing pipeline",
	Long:  `Watches the ticket pipeline over websocket and REST. Running with no subcommand opens the interactive dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		tickets, err := client.FetchAll(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(tickets)
		}
		for _, t := range tickets {
			fmt.Println(formatTicketRow(t))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one ticket with its pipeline stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		t, err := client.FetchTicket(ctx, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(t)
		}
		printTicketDetail(t)
		return nil
	},
}

var processCmd = &cobra.Command{
	Use:   "process <id>",
	Short: "Start or resume pipeline processing for a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		message, err := client.Process(ctx, args[0])
		if err != nil {
			return err
		}
		if message == "" {
			message = fmt.Sprintf("Processing started for %s", args[0])
		}
		fmt.Println(message)
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending review so the pipeline continues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		message, err := client.ApproveReview(ctx, args[0])
		if err != nil {
			return err
		}
		if message == "" {
			message = fmt.Sprintf("Review approved for %s", args[0])
		}
		fmt.Println(message)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in as a local user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAuth()
		if err != nil {
			return err
		}
		defer st.Close()

		username := args[0]
		if flagCreate {
			if err := st.CreateUser(username); err != nil {
				return err
			}
		}
		sess, err := st.SignIn(username)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", sess.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAuth()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SignOut(); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAuth()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, ok, err := st.Current()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Println(sess.Username)
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List local users",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAuth()
		if err != nil {
			return err
		}
		defer st.Close()

		users, err := st.Users()
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(users)
		}
		for _, u := range users {
			fmt.Println(u)
		}
		return nil
	},
}

// commandContext bounds one-shot REST commands.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

// setup loads config, requires a session, and builds the REST client.
func setup() (*api.Client, auth.Session, error) {
	cfg := config.Load()
	log := logger.New(cfg)

	sess, err := requireSession(cfg)
	if err != nil {
		return nil, auth.Session{}, err
	}

	return api.NewClient(cfg.ServerURL, cfg.HTTPTimeout, log), sess, nil
}

func openAuth() (*auth.Store, error) {
	path, err := dbPath(config.Load())
	if err != nil {
		return nil, err
	}
	return auth.Open(path)
}

// dbPath resolves the auth store location, falling back to the default
// under the home directory.
func dbPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return auth.DefaultPath()
}

// requireSession returns the signed-in user or a sign-in hint.
func requireSession(cfg config.Config) (auth.Session, error) {
	path, err := dbPath(cfg)
	if err != nil {
		return auth.Session{}, err
	}
	st, err := auth.Open(path)
	if err != nil {
		return auth.Session{}, err
	}
	defer st.Close()

	sess, ok, err := st.Current()
	if err != nil {
		return auth.Session{}, err
	}
	if !ok {
		return auth.Session{}, fmt.Errorf("not signed in, run: tickwatch login <username> --create")
	}
	return sess, nil
}

func runTUI() error {
	cfg := config.Load()
	log := logger.New(cfg)

	sess, err := requireSession(cfg)
	if err != nil {
		return err
	}

	s := store.New()
	engine := reconcile.New(s, log)
	client := api.NewClient(cfg.ServerURL, cfg.HTTPTimeout, log)
	conn := ws.New(cfg.WSURL, cfg.ReconnectDelay, log)

	return tui.Run(sess, s, engine, client, conn, flagTicket)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTicketRow(t model.Ticket) string {
	review := ""
	if t.WaitingForReview {
		review = "  [review]"
	}
	done := 0
	for _, st := range t.Stages {
		if st.Status == model.StageCompleted {
			done++
		}
	}
	return fmt.Sprintf("%-12s %-8s %-12s %d/%d  %s%s",
		t.ID, t.Priority, t.Status, done, len(t.Stages), t.Title, review)
}

func printTicketDetail(t model.Ticket) {
	fmt.Printf("%s  %s\n", t.ID, t.Title)
	fmt.Printf("Customer: %s\n", t.Customer)
	fmt.Printf("Priority: %s\n", t.Priority)
	fmt.Printf("Status:   %s\n", t.Status)
	if t.CreatedAt != "" {
		fmt.Printf("Created:  %s\n", t.CreatedAt)
	}
	for _, row := range [][2]string{
		{"AIT", t.AITNumber},
		{"Type", t.DeliverableType},
		{"Category", t.Category},
		{"SLA Due", t.SLADeadline},
		{"ARM", t.ARMID},
		{"App", t.ApplicationName},
		{"LOB Owner", t.LOBOwner},
		{"AIT Owner", t.AITOwner},
		{"Contacts", strings.Join(t.Contacts, ", ")},
	} {
		if row[1] != "" {
			fmt.Printf("%-9s %s\n", row[0]+":", row[1])
		}
	}
	fmt.Println("Stages:")
	for i, st := range t.Stages {
		marker := " "
		switch st.Status {
		case model.StageCompleted:
			marker = "x"
		case model.StageInProgress:
			marker = ">"
		case model.StageError:
			marker = "!"
		}
		fmt.Printf("  [%s] %d. %s", marker, i+1, st.Name)
		if st.Message != "" {
			fmt.Printf(" (%s)", st.Message)
		}
		fmt.Println()
	}
	if t.WaitingForReview {
		fmt.Println("Waiting for review")
	}
	if action := model.NextAction(t); action != model.ActionNone {
		fmt.Printf("Next action: %s\n", action.Label())
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output JSON")
	rootCmd.Flags().StringVar(&flagTicket, "ticket", "", "Select this ticket on startup")
	tuiCmd.Flags().StringVar(&flagTicket, "ticket", "", "Select this ticket on startup")
	loginCmd.Flags().BoolVar(&flagCreate, "create", false, "Create the user before signing in")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
