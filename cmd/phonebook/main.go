// Package main is the entry point for the phonebook CLI.
// It manages owner accounts and their contacts in the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prn-tf/phonebook/internal/bootstrap"
	"github.com/prn-tf/phonebook/internal/config"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// errUsage marks a command line the user has to correct.
var errUsage = errors.New("usage error")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("Phonebook CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return

	case "owner":
		err = runOwner(ctx, args)

	case "contact":
		err = runContact(ctx, args)

	case "seed":
		err = runSeed(ctx, args)

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// withApp loads configuration, wires the application and runs fn with it.
func withApp(ctx context.Context, configPath string, fn func(app *bootstrap.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()
	logger = logger.With().Str("version", Version).Logger()

	app, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	return fn(app)
}

func printUsage() {
	fmt.Println(`Phonebook CLI

Usage:
  phonebook <command> <subcommand> [flags]

Commands:
  owner create   Create an owner account
  owner list     List owner accounts
  owner rename   Change an owner's login name
  owner passwd   Change an owner's password
  owner delete   Delete an owner and all of its contacts
  contact add    Add a contact
  contact list   Print the contact directory
  contact search Search contacts by name and surname prefix
  contact update Update the contact at a directory position
  contact delete Delete the contacts at directory positions
  seed           Create the demo owner with random contacts
  version        Print version information
  help           Show this help message

Every command accepts --config <file>. Settings can also be given as
PHONEBOOK_* environment variables, e.g. PHONEBOOK_DATABASE_DRIVER=postgres.

Examples:
  phonebook owner create --name Ann --surname Lee --login ann --password 'Abcdef1!'
  phonebook contact add --login ann --password 'Abcdef1!' --name Bob --surname Lee \
      --address '1 Main St' --phone 555-0100 --age 30
  phonebook contact search --login ann --password 'Abcdef1!' --query 'Bo Le'
  phonebook contact delete --login ann --password 'Abcdef1!' --rows 1,3
  phonebook seed --contacts 100`)
}
