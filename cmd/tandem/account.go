package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dukerupert/tandem/internal/model"
)

// subFlags returns a flag set that reports errors instead of exiting.
func subFlags(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

// positional splits off the first n arguments, failing with a usage line
// when there are fewer.
func positional(args []string, n int, line string) ([]string, []string, error) {
	if len(args) < n {
		return nil, nil, fmt.Errorf("%w: tandem %s", errUsage, line)
	}
	return args[:n], args[n:], nil
}

func (a *app) credentials(name string, args []string) (string, string, error) {
	fs := subFlags(name, a.errOut)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return "", "", errUsage
	}
	if *email == "" || *password == "" {
		return "", "", fmt.Errorf("%w: tandem %s -email <email> -password <password>", errUsage, name)
	}
	return *email, *password, nil
}

func (a *app) register(ctx context.Context, args []string) error {
	email, password, err := a.credentials("register", args)
	if err != nil {
		return err
	}
	if err := a.sess.SignUp(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created. Signed in as %s\n", a.sess.User().Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	email, password, err := a.credentials("login", args)
	if err != nil {
		return err
	}
	if err := a.sess.SignIn(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", a.sess.User().Email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if !a.sess.SignedIn() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	if err := a.sess.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// systemDark guesses the terminal background from $COLORFGBG ("fg;bg").
func systemDark() bool {
	v := os.Getenv("COLORFGBG")
	i := strings.LastIndex(v, ";")
	if i < 0 {
		return false
	}
	switch v[i+1:] {
	case "0", "1", "2", "3", "4", "5", "6", "8":
		return true
	}
	return false
}

func (a *app) settings(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) == 0 {
		u := a.sess.User()
		name := "(not set)"
		if p := a.sess.Profile(); p != nil && p.DisplayName != nil {
			name = *p.DisplayName
		}
		fmt.Fprintf(a.out, "Email:        %s\n", u.Email)
		fmt.Fprintf(a.out, "Display name: %s\n", name)
		fmt.Fprintf(a.out, "Theme:        %s (%s)\n", a.sess.Theme(), a.sess.ResolvedTheme(systemDark()))
		return nil
	}

	switch args[0] {
	case "name":
		p, err := a.sess.UpdateProfile(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if p.DisplayName == nil {
			fmt.Fprintln(a.out, "Display name cleared")
		} else {
			fmt.Fprintf(a.out, "Display name set to %s\n", *p.DisplayName)
		}
		return nil

	case "theme":
		if len(args) != 2 {
			return fmt.Errorf("%w: tandem settings theme light|dark|system", errUsage)
		}
		if err := a.sess.SetTheme(ctx, model.Theme(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Theme set to %s\n", args[1])
		return nil

	case "password":
		fs := subFlags("settings password", a.errOut)
		pw := fs.String("new", "", "new password")
		confirm := fs.String("confirm", "", "repeat the new password")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		if err := a.sess.UpdatePassword(ctx, *pw, *confirm); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password updated")
		return nil

	case "delete-account":
		fs := subFlags("settings delete-account", a.errOut)
		yes := fs.Bool("yes", false, "confirm deletion")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		if !*yes {
			return fmt.Errorf("this deletes every list you own; rerun with -yes to confirm")
		}
		if err := a.sess.DeleteAccount(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Account deleted")
		return nil
	}
	return fmt.Errorf("%w: unknown settings command %q", errUsage, args[0])
}
