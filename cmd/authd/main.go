// Command authd serves the authcore session lifecycle over HTTP.
//
// Configuration comes from the environment (see internal/appconfig), with an
// optional .env file. With -dev it runs against an embedded miniredis and an
// in-memory credential store, which is enough to try the routes locally:
//
//	AUTH_JWT_SECRET=dev-secret-dev-secret-dev-secret go run ./cmd/authd -dev -seed alice:changeme:admin
//
//	curl -i -c jar.txt -X POST localhost:8080/users/login \
//	  -H 'Content-Type: application/json' -d '{"login":"alice","password":"changeme"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "authd:", err)
		os.Exit(1)
	}
}

type flags struct {
	envFile string
	dev     bool
	migrate bool
	seeds   seedList
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("authd", flag.ContinueOnError)
	fs.StringVar(&f.envFile, "env", ".env", "dotenv file to load before reading the environment")
	fs.BoolVar(&f.dev, "dev", false, "use embedded miniredis and an in-memory credential store")
	fs.BoolVar(&f.migrate, "migrate", true, "apply database migrations at startup when DATABASE_URL is set")
	fs.Var(&f.seeds, "seed", "login:password:role user to create with a pending password change (repeatable)")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}
