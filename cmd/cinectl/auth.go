package main

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"
)

// lineReader hands out stdin one trimmed line at a time.
type lineReader struct {
	sc *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{sc: bufio.NewScanner(r)}
}

func (r *lineReader) next() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(r.sc.Text()), nil
}

func runLogin(c *cli, args []string) error {
	fs := c.flags("[--email addr] [--password pw]")
	email := fs.String("email", "", "Account email (prompted when empty)")
	password := fs.String("password", "", "Password (read from stdin when empty)")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}

	in := newLineReader(c.in)
	var err error
	if *email == "" {
		if *email, err = c.promptLine("Email: ", in); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = c.promptLine("Password: ", in); err != nil {
			return err
		}
	}

	if err := c.rt.Session.Login(c.ctx, *email, *password); err != nil {
		return err
	}
	c.printf("Signed in as %s\n", c.who())
	return nil
}

func runRegister(c *cli, args []string) error {
	fs := c.flags("--name name --email addr --password pw")
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Password (at least 6 characters)")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}

	// Field validation happens in the session holder, before any request.
	if err := c.rt.Session.Register(c.ctx, *name, *email, *password); err != nil {
		return err
	}
	c.printf("Account created. Signed in as %s\n", c.who())
	return nil
}

func runExchange(c *cli, args []string) error {
	fs := c.flags("<token>")
	pos, err := c.exactArgs(fs, args, 1)
	if err != nil {
		return err
	}
	if err := c.rt.Session.ExchangeExternalToken(c.ctx, pos[0]); err != nil {
		return err
	}
	c.printf("Signed in as %s\n", c.who())
	return nil
}

func runLogout(c *cli, args []string) error {
	fs := c.flags("")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}
	if !c.rt.Session.Authenticated() {
		c.printf("Not signed in\n")
		return nil
	}
	if err := c.rt.Session.Logout(); err != nil {
		return err
	}
	c.printf("Signed out\n")
	return nil
}

func runWhoami(c *cli, args []string) error {
	fs := c.flags("")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}
	if !c.rt.Session.Authenticated() {
		return errors.New("not signed in (run 'cinectl login')")
	}

	// Prefer a fresh profile; fall back to the stored one.
	if u, err := c.rt.Client.Me(c.ctx); err == nil {
		c.printf("%s <%s>\n", u.Name, u.Email)
	} else {
		c.printf("%s (profile unavailable: %v)\n", c.who(), err)
	}
	if exp, ok := c.rt.Session.ExpiresAt(); ok {
		state := "expires"
		if c.rt.Session.Expired(time.Now()) {
			state = "expired"
		}
		c.printf("Token %s %s\n", state, exp.Local().Format(time.RFC1123))
	}
	return nil
}

// who names the signed-in user for messages.
func (c *cli) who() string {
	u := c.rt.Session.User()
	switch {
	case u == nil:
		return "token holder"
	case u.Name != "" && u.Email != "":
		return u.Name + " <" + u.Email + ">"
	case u.Email != "":
		return u.Email
	default:
		return u.Name
	}
}
