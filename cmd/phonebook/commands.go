package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prn-tf/phonebook/internal/bootstrap"
	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
	"github.com/prn-tf/phonebook/internal/service"
)

// credentials are the flags shared by every command that acts as an owner.
type credentials struct {
	login    string
	password string
}

func (c *credentials) register(fs *flag.FlagSet) {
	fs.StringVar(&c.login, "login", "", "owner login name")
	fs.StringVar(&c.password, "password", "", "owner password")
}

func (c *credentials) session(ctx context.Context, app *bootstrap.App) (*service.Session, error) {
	if c.login == "" || c.password == "" {
		return nil, fmt.Errorf("%w: --login and --password are required", errUsage)
	}
	return app.Phonebook.Login(ctx, c.login, c.password)
}

func newFlagSet(name string, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(configPath, "config", "", "path to config file")
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments: %s", errUsage, strings.Join(fs.Args(), " "))
	}
	return nil
}

// =============================================================================
// owner
// =============================================================================

func runOwner(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: owner requires a subcommand (create, list, rename, passwd, delete)", errUsage)
	}

	var (
		configPath string
		creds      credentials
	)
	sub, args := args[0], args[1:]
	fs := newFlagSet("owner "+sub, &configPath)

	switch sub {
	case "create":
		var name, surname string
		fs.StringVar(&name, "name", "", "owner name")
		fs.StringVar(&surname, "surname", "", "owner surname")
		creds.register(fs)
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := app.Phonebook.SignUp(ctx, name, surname, creds.login, creds.password)
			if err != nil {
				return err
			}
			owner := session.Owner()
			fmt.Printf("Owner created: %s (%s)\n", owner.LoginName(), owner.ID())
			return nil
		})

	case "list":
		var offset, limit int
		fs.IntVar(&offset, "offset", 0, "number of owners to skip")
		fs.IntVar(&limit, "limit", 0, "maximum owners to print, 0 for all")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			result, err := app.Owners.List(ctx, repository.ListOptions{Offset: offset, Limit: limit})
			if err != nil {
				return err
			}
			printOwners(os.Stdout, result)
			return nil
		})

	case "rename":
		var newLogin string
		creds.register(fs)
		fs.StringVar(&newLogin, "new-login", "", "new login name")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			if err := app.Phonebook.ChangeLoginName(ctx, session, newLogin); err != nil {
				return err
			}
			fmt.Printf("Login name changed to %s\n", newLogin)
			return nil
		})

	case "passwd":
		var newPassword string
		creds.register(fs)
		fs.StringVar(&newPassword, "new-password", "", "new password")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			if err := app.Phonebook.ChangePassword(ctx, session, creds.password, newPassword); err != nil {
				return err
			}
			fmt.Println("Password changed")
			return nil
		})

	case "delete":
		creds.register(fs)
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			if err := app.Phonebook.DeleteOwner(ctx, session); err != nil {
				return err
			}
			fmt.Printf("Owner %s deleted\n", creds.login)
			return nil
		})

	default:
		return fmt.Errorf("%w: unknown owner subcommand %q", errUsage, sub)
	}
}

func printOwners(w io.Writer, result *repository.ListResult[repository.OwnerRecord]) {
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "No owners found")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-20s  %-20s\n", "ID", "LOGIN", "NAME", "SURNAME")
	fmt.Fprintln(w, strings.Repeat("-", 102))
	for _, o := range result.Items {
		fmt.Fprintf(w, "%-36s  %-20s  %-20s  %-20s\n", o.ID, o.LoginName, o.Name, o.Surname)
	}
	fmt.Fprintf(w, "\nShowing %d of %d owners\n", len(result.Items), result.Total)
}

// =============================================================================
// contact
// =============================================================================

// contactFields collects the editable contact flags.
type contactFields struct {
	name    string
	surname string
	address string
	phone   string
	age     int
}

func (f *contactFields) register(fs *flag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "contact name")
	fs.StringVar(&f.surname, "surname", "", "contact surname")
	fs.StringVar(&f.address, "address", "", "contact address")
	fs.StringVar(&f.phone, "phone", "", "contact phone number")
	fs.IntVar(&f.age, "age", 0, "contact age")
}

// apply copies the flags that were set on the command line onto c.
func (f *contactFields) apply(fs *flag.FlagSet, c *domain.Contact) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "name":
			err = c.SetName(f.name)
		case "surname":
			err = c.SetSurname(f.surname)
		case "address":
			err = c.SetAddress(f.address)
		case "phone":
			err = c.SetPhone(f.phone)
		case "age":
			err = c.SetAge(f.age)
		}
	})
	return err
}

func runContact(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: contact requires a subcommand (add, list, search, update, delete)", errUsage)
	}

	var (
		configPath string
		creds      credentials
		fields     contactFields
	)
	sub, args := args[0], args[1:]
	fs := newFlagSet("contact "+sub, &configPath)
	creds.register(fs)

	switch sub {
	case "add":
		fields.register(fs)
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			contact, err := domain.NewContact(session.Owner().ID(), fields.name, fields.surname, fields.address, fields.phone, fields.age)
			if err != nil {
				return err
			}
			if err := app.Phonebook.AddContact(ctx, session, contact); err != nil {
				return err
			}
			fmt.Printf("Contact added: %s %s (%s)\n", contact.Name(), contact.Surname(), contact.ID())
			return nil
		})

	case "list":
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			table, err := app.Phonebook.Render(session)
			if err != nil {
				return err
			}
			fmt.Print(table)
			return nil
		})

	case "search":
		var query string
		fs.StringVar(&query, "query", "", "name and/or surname prefix")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			found, err := app.Phonebook.Search(ctx, session, query)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Println("No contacts found")
				return nil
			}
			fmt.Print(domain.NewDirectory(found).Render())
			return nil
		})

	case "update":
		var row int
		fs.IntVar(&row, "row", 0, "1-based row number from contact list")
		fields.register(fs)
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			contacts, err := app.Phonebook.ListContacts(session)
			if err != nil {
				return err
			}
			if row < 1 || row > len(contacts) {
				return domain.NewDomainError(domain.ErrIndexOutOfRange,
					fmt.Sprintf("row %d does not exist, directory has %d rows", row, len(contacts)), "")
			}
			contact := contacts[row-1].Clone()
			if err := fields.apply(fs, contact); err != nil {
				return err
			}
			if err := app.Phonebook.UpdateContact(ctx, session, contact); err != nil {
				return err
			}
			fmt.Printf("Contact %d updated\n", row)
			return nil
		})

	case "delete":
		var rows string
		fs.StringVar(&rows, "rows", "", "comma-separated 1-based row numbers from contact list")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		indexes, err := parseRows(rows)
		if err != nil {
			return err
		}
		return withApp(ctx, configPath, func(app *bootstrap.App) error {
			session, err := creds.session(ctx, app)
			if err != nil {
				return err
			}
			deleted, err := app.Phonebook.DeleteContactsAt(ctx, session, indexes)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d contact(s)\n", deleted)
			return nil
		})

	default:
		return fmt.Errorf("%w: unknown contact subcommand %q", errUsage, sub)
	}
}

// parseRows turns "1,3" into 0-based directory positions.
func parseRows(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: --rows is required", errUsage)
	}

	parts := strings.Split(s, ",")
	indexes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid row %q", errUsage, p)
		}
		indexes = append(indexes, n-1)
	}
	return indexes, nil
}

// =============================================================================
// seed
// =============================================================================

func runSeed(ctx context.Context, args []string) error {
	var configPath string
	input := service.DefaultSeedInput()
	contacts := -1

	fs := newFlagSet("seed", &configPath)
	fs.StringVar(&input.LoginName, "login", input.LoginName, "login name of the demo owner")
	fs.StringVar(&input.Password, "password", input.Password, "password of the demo owner")
	fs.IntVar(&contacts, "contacts", -1, "number of contacts to add (default from config)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, configPath, func(app *bootstrap.App) error {
		input.Contacts = app.Config.Seed.Contacts
		if contacts >= 0 {
			input.Contacts = contacts
		}

		seeder := service.NewSeedService(app.Phonebook, nil, app.Logger)
		out, err := seeder.Seed(ctx, input)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				return fmt.Errorf("login %q exists with a different password: %w", input.LoginName, err)
			}
			return err
		}

		state := "existing"
		if out.OwnerCreated {
			state = "new"
		}
		fmt.Printf("Seeded %d contact(s) for %s owner %s\n", out.ContactsAdded, state, input.LoginName)
		return nil
	})
}
