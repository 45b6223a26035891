package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"

	"github.com/marcus/bujo/internal/config"
	"github.com/marcus/bujo/internal/output"
	"github.com/marcus/bujo/internal/userdb"
)

func runAdmin(args []string) {
	if len(args) == 0 {
		printAdminUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "users":
		runAdminUsers(args[1:])
	case "logout":
		runAdminLogout(args[1:])
	case "events":
		runAdminEvents(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown admin command: %s\n", args[0])
		printAdminUsage()
		os.Exit(1)
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, `Usage: bujo-web admin <command> [flags]

Commands:
  users   List signed-in users
  logout  Revoke a user's sessions and stored tokens
  events  Show recent login events`)
}

// openDB opens the user database at dbPath, or the configured path when empty.
func openDB(dbPath string) *userdb.DB {
	if dbPath == "" {
		cfg, err := config.Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
			os.Exit(1)
		}
		dbPath = cfg.DatabasePath()
	}
	store, err := userdb.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runAdminUsers(args []string) {
	fs := pflag.NewFlagSet("admin users", pflag.ExitOnError)
	dbPath := fs.String("db", "", "path to bujo.db (default: from BUJO_DB_PATH or <data dir>/bujo.db)")
	fs.Parse(args)

	store := openDB(*dbPath)
	defer store.Close()

	users, err := store.ListUsers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(users) == 0 {
		fmt.Println("no users")
		return
	}

	fmt.Println(usersTable(users))
}

func usersTable(users []*userdb.User) *table.Table {
	t := adminTable("ID", "NAME", "EMAIL", "LAST LOGIN")
	for _, u := range users {
		last := "never"
		if u.LastLoginAt != nil {
			last = output.FormatTimeAgo(*u.LastLoginAt)
		}
		t.Row(u.ID, u.Name, u.Email, last)
	}
	return t
}

func runAdminLogout(args []string) {
	fs := pflag.NewFlagSet("admin logout", pflag.ExitOnError)
	userID := fs.StringP("user", "u", "", "user id to sign out")
	dbPath := fs.String("db", "", "path to bujo.db (default: from BUJO_DB_PATH or <data dir>/bujo.db)")
	fs.Parse(args)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "error: --user is required")
		fs.Usage()
		os.Exit(1)
	}

	store := openDB(*dbPath)
	defer store.Close()

	user, err := store.GetUser(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if user == nil {
		fmt.Fprintf(os.Stderr, "error: user not found: %s\n", *userID)
		os.Exit(1)
	}

	n, err := store.DeleteUserSessions(user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := store.ClearTokens(user.ID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := store.InsertAuthEvent(user.ID, userdb.AuthEventAdminRevoked, fmt.Sprintf("%d sessions", n)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: record auth event: %v\n", err)
	}

	fmt.Printf("signed out %s (%d sessions revoked)\n", user.ID, n)
}

func runAdminEvents(args []string) {
	fs := pflag.NewFlagSet("admin events", pflag.ExitOnError)
	userID := fs.StringP("user", "u", "", "only show events for this user")
	limit := fs.IntP("limit", "n", 20, "maximum events to show")
	dbPath := fs.String("db", "", "path to bujo.db (default: from BUJO_DB_PATH or <data dir>/bujo.db)")
	fs.Parse(args)

	store := openDB(*dbPath)
	defer store.Close()

	events, err := store.RecentAuthEvents(*userID, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	t := adminTable("TIME", "USER", "EVENT", "DETAIL")
	for _, e := range events {
		t.Row(e.CreatedAt.Local().Format(time.DateTime), e.UserID, e.EventType, e.Detail)
	}
	fmt.Println(t)
}

// adminTable returns a borderless table with bold headers.
func adminTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cell := lipgloss.NewStyle().PaddingRight(2)
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}
