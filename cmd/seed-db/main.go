// Command seed-db loads demo users and carts and prints a bearer token for
// each seeded user.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/repository"
	"github.com/xenking/storefront/internal/seed"
)

type options struct {
	databaseURL string
	file        string
	secret      string
	issuer      string
	tokenTTL    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.file, "file", "", "fixtures JSON file, the embedded fixtures when empty")
	flag.StringVar(&opts.secret, "auth-secret", "", "token signing secret (or STORE_AUTH_SECRET env), no tokens when empty")
	flag.StringVar(&opts.issuer, "auth-issuer", "storefront", "token issuer")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of printed tokens")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.secret == "" {
		opts.secret = os.Getenv("STORE_AUTH_SECRET")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		return run(ctx, lg, opts)
	})
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	if opts.databaseURL == "" {
		return errors.New("database URL is required: set --database-url or DATABASE_URL")
	}

	data, err := readFixtures(opts.file)
	if err != nil {
		return err
	}
	fixtures, err := seed.Parse(data)
	if err != nil {
		return err
	}

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seeded, err := seed.Load(ctx, lg,
		repository.NewUserRepository(pool),
		repository.NewCartRepository(pool),
		fixtures,
	)
	if err != nil {
		return err
	}
	lg.Info("Seed completed", zap.Int("users", len(seeded)))

	if opts.secret == "" {
		return nil
	}
	tokens, err := auth.NewTokens([]byte(opts.secret), opts.issuer)
	if err != nil {
		return err
	}
	for _, s := range seeded {
		p := auth.Principal{UserID: s.User.ID}
		if s.User.IsAdmin {
			p.Roles = []string{auth.RoleAdmin}
		}
		tok, err := tokens.Issue(p, opts.tokenTTL)
		if err != nil {
			return errors.Wrapf(err, "issue token for %s", s.User.Email)
		}
		fmt.Printf("%s\t%d\t%v\t%s\n", s.User.Email, s.User.ID, s.CartIDs, tok)
	}
	return nil
}

func readFixtures(path string) ([]byte, error) {
	if path == "" {
		return db.Seed.ReadFile("seed/users.json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read fixtures")
	}
	return data, nil
}
