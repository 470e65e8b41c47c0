package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"modreview/internal/config"
	"modreview/internal/domain"
	impl "modreview/internal/service/impl"
	"modreview/internal/store"
	"modreview/pkg/db"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	ctx := context.Background()
	cfg := config.Load()

	var err error
	switch cmd {
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "user":
		if len(args) < 1 {
			usage()
		}
		err = withStore(ctx, cfg, func(st *store.Store) error {
			return runUser(ctx, st, cfg.BcryptCost, args[0], args[1:], os.Stdout)
		})
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  migrate                 Apply database migrations")
	fmt.Fprintln(os.Stderr, "  user add                Insert a user (status Found unless -status is given)")
	fmt.Fprintln(os.Stderr, "  user grant              Grant a capability")
	fmt.Fprintln(os.Stderr, "  user revoke-cap         Revoke a capability")
	fmt.Fprintln(os.Stderr, "  user password           Set a user's password")
	os.Exit(2)
}

func openStore(ctx context.Context, cfg config.Config) (*store.Store, func(), error) {
	gdb, err := db.OpenGorm(db.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, err
	}
	return store.New(gdb.WithContext(ctx)), func() { _ = sqlDB.Close() }, nil
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	st, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := db.Migrate(ctx, st.DB, cfg.DatabaseDriver); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}

func withStore(ctx context.Context, cfg config.Config, fn func(st *store.Store) error) error {
	st, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(st)
}

type userOpts struct {
	name       string
	password   string
	status     string
	caps       string
	capability string
	discoverer string
	discordID  int64
}

func parseUserFlags(sub string, args []string) (userOpts, error) {
	fs := flag.NewFlagSet("user "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var o userOpts
	fs.StringVar(&o.name, "name", "", "username")
	switch sub {
	case "add":
		fs.StringVar(&o.password, "password", os.Getenv("MODCTL_PASSWORD"), "initial password (optional)")
		fs.StringVar(&o.status, "status", string(domain.StatusFound), "Found, Approved or Denied")
		fs.StringVar(&o.caps, "caps", "", "comma separated capabilities (moderator,approve_user,login)")
		fs.StringVar(&o.discoverer, "discoverer", "modctl", "who discovered the user")
		fs.Int64Var(&o.discordID, "discord-id", 0, "linked Discord account id")
	case "grant", "revoke-cap":
		fs.StringVar(&o.capability, "cap", "", "capability name")
	case "password":
		fs.StringVar(&o.password, "password", os.Getenv("MODCTL_PASSWORD"), "new password")
	default:
		return userOpts{}, fmt.Errorf("unknown user subcommand %q", sub)
	}

	if err := fs.Parse(args); err != nil {
		return userOpts{}, err
	}
	o.name = strings.TrimSpace(o.name)
	if o.name == "" {
		return userOpts{}, errors.New("-name is required")
	}
	return o, nil
}

func runUser(ctx context.Context, st *store.Store, bcryptCost int, sub string, args []string, out io.Writer) error {
	o, err := parseUserFlags(sub, args)
	if err != nil {
		return err
	}
	users := st.Users()

	switch sub {
	case "add":
		status, err := domain.ParseStatus(o.status)
		if err != nil {
			return err
		}
		caps := domain.Capabilities{}
		for _, raw := range strings.Split(o.caps, ",") {
			if raw = strings.TrimSpace(raw); raw == "" {
				continue
			}
			c, err := domain.ParseCapability(raw)
			if err != nil {
				return err
			}
			caps = caps.Grant(c)
		}
		u := &domain.User{
			DiscordID:   o.discordID,
			Username:    o.name,
			Permissions: caps,
			Status:      status,
			Discoverer:  o.discoverer,
			Created:     time.Now().UTC(),
		}
		if o.password != "" {
			h, err := impl.NewPasswordServiceBcrypt(bcryptCost).Hash(o.password)
			if err != nil {
				return err
			}
			u.Password = h
		}
		if err := users.Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("user %q already exists", o.name)
			}
			return err
		}
		return printJSON(out, u)

	case "grant", "revoke-cap":
		c, err := domain.ParseCapability(o.capability)
		if err != nil {
			return err
		}
		var (
			u       *domain.User
			revoked int64
		)
		err = st.WithTx(ctx, func(tx *store.Store) error {
			if u, err = lookupUser(ctx, tx.Users(), o.name); err != nil {
				return err
			}
			if sub == "grant" {
				u.Permissions = u.Permissions.Grant(c)
			} else {
				u.Permissions = u.Permissions.Revoke(c)
			}
			if err := tx.Users().SetPermissions(ctx, u.ID, u.Permissions); err != nil {
				return err
			}
			if sub == "revoke-cap" && c == domain.CapLogin {
				revoked, err = tx.Tokens().DeleteAllForUser(ctx, u.ID)
			}
			return err
		})
		if err != nil {
			return err
		}
		if revoked > 0 {
			fmt.Fprintf(out, "revoked %d session(s)\n", revoked)
		}
		return printJSON(out, u)

	case "password":
		if o.password == "" {
			return errors.New("-password is required")
		}
		h, err := impl.NewPasswordServiceBcrypt(bcryptCost).Hash(o.password)
		if err != nil {
			return err
		}
		var revoked int64
		err = st.WithTx(ctx, func(tx *store.Store) error {
			u, err := lookupUser(ctx, tx.Users(), o.name)
			if err != nil {
				return err
			}
			if err := tx.Users().SetPassword(ctx, u.ID, h); err != nil {
				return err
			}
			revoked, err = tx.Tokens().DeleteAllForUser(ctx, u.ID)
			return err
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "password updated for %s, %d session(s) revoked\n", o.name, revoked)
		return err
	}
	return nil
}

func lookupUser(ctx context.Context, users *store.UserStore, name string) (*domain.User, error) {
	u, err := users.GetByUsername(ctx, name)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q not found", name)
	}
	return u, err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
