package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/caadev/tutortrainer/internal/adapter/postgres"
	"github.com/caadev/tutortrainer/internal/config"
	"github.com/caadev/tutortrainer/internal/port/database"
	"github.com/caadev/tutortrainer/internal/service"
)

// runAdmin dispatches admin subcommands (list-users, list-conversations,
// delete-conversation).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "list-users":
		return runAdminListUsers(args[1:])
	case "list-conversations":
		return runAdminListConversations(args[1:])
	case "delete-conversation":
		return runAdminDeleteConversation(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tutortrainer admin <command> [options]

Commands:
  list-users           List all known users
  list-conversations   List a user's conversations
  delete-conversation  Delete a conversation and its cached state
  help                 Show this help message

Examples:
  tutortrainer admin list-users
  tutortrainer admin list-conversations --user-id 123
  tutortrainer admin delete-conversation --user-id 123 --name "Math Tutor Conversation 2"
`)
}

func loadAdminStore() (database.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := service.NewIdentityService(store).ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "USER_ID\tUSERNAME")
	for i := range users {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", users[i].ID, users[i].Username)
	}
	return w.Flush()
}

func runAdminListConversations(args []string) error {
	fs := flag.NewFlagSet("list-conversations", flag.ContinueOnError)
	userID := fs.Int("user-id", 0, "numeric user id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 {
		return fmt.Errorf("--user-id is required")
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	convs, err := store.ListConversationNames(context.Background(), *userID)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	if len(convs) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tMODE\tSUBJECT\tTHREAD_REF")
	for i := range convs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			convs[i].Name, convs[i].Mode, convs[i].Subject, convs[i].ThreadRef)
	}
	return w.Flush()
}

func runAdminDeleteConversation(args []string) error {
	fs := flag.NewFlagSet("delete-conversation", flag.ContinueOnError)
	userID := fs.Int("user-id", 0, "numeric user id (required)")
	name := fs.String("name", "", "conversation name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 {
		return fmt.Errorf("--user-id is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.DeleteConversation(context.Background(), *userID, *name); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted %q for user %d\n", *name, *userID)
	return nil
}
