// Command tandem is the command-line client for a tandem server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/logging"
	"github.com/dukerupert/tandem/internal/prefs"
	"github.com/dukerupert/tandem/internal/session"
)

const defaultServer = "http://localhost:8080"

var (
	errUsage       = errors.New("usage")
	errNotSignedIn = errors.New("not signed in: run `tandem login -email <email> -password <password>`")
)

func usage(w io.Writer) {
	fmt.Fprint(w, `tandem - shared shopping lists

Usage:
  tandem [-server URL] <command> [args]

Account:
  register -email <email> -password <password>
  login    -email <email> -password <password>
  logout

Lists:
  lists
  new [name]                         (blank name uses the current date and time)
  rm-list <list-id>
  join <share-token>

One list:
  show    <list-id>
  add     <list-id> [-q quantity] [-n notes] [-image file] <name>
  check   <list-id> <item-id>
  edit    <list-id> <item-id> [-name name] [-q quantity] [-n notes]
  rm      <list-id> <item-id>
  image   <list-id> <item-id> <file> | -remove
  archive <list-id>
  restore <list-id>
  share   <list-id>
  invite  <list-id> <email>
  watch   <list-id>                  (live view, Ctrl-C to stop)

Settings:
  settings
  settings name <display name>
  settings theme light|dark|system
  settings password -new <password> -confirm <password>
  settings delete-account -yes
`)
}

type app struct {
	out    io.Writer
	errOut io.Writer
	prefs  *prefs.Store
	client *client.Client
	sess   *session.Context
}

func (a *app) requireSession() error {
	if !a.sess.SignedIn() {
		return errNotSignedIn
	}
	return nil
}

func serverURL(flagValue string, st prefs.State) string {
	switch {
	case flagValue != "":
		return flagValue
	case st.ServerURL != "":
		return st.ServerURL
	case os.Getenv("TANDEM_SERVER") != "":
		return os.Getenv("TANDEM_SERVER")
	}
	return defaultServer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tandem", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", "", "server URL (default: saved server, $TANDEM_SERVER or "+defaultServer+")")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return errUsage
	}

	store := prefs.Open(prefs.Dir())
	st, err := store.Load()
	if err != nil {
		return err
	}

	c := client.New(serverURL(*server, st))
	a := &app{
		out:    stdout,
		errOut: stderr,
		prefs:  store,
		client: c,
		sess:   session.New(c, store),
	}
	if err := a.sess.Init(ctx); err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "lists":
		return a.lists(ctx)
	case "new":
		return a.newList(ctx, rest)
	case "rm-list":
		return a.removeList(ctx, rest)
	case "join":
		return a.join(ctx, rest)
	case "show":
		return a.show(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "check":
		return a.check(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "rm":
		return a.removeItem(ctx, rest)
	case "image":
		return a.image(ctx, rest)
	case "archive":
		return a.setStatus(ctx, rest, true)
	case "restore":
		return a.setStatus(ctx, rest, false)
	case "share":
		return a.share(ctx, rest)
	case "invite":
		return a.invite(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	case "settings":
		return a.settings(ctx, rest)
	case "help":
		usage(stdout)
		return nil
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
	usage(stderr)
	return errUsage
}

func main() {
	level := os.Getenv("TANDEM_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logging.Setup(level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			if err != errUsage {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
