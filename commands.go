// commands.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"climb-calendar/auth"
	"climb-calendar/logger"
	"climb-calendar/services"
)

// makeAdmins grants the admin role from the command line and writes the
// new claims back to the accounts file.
func makeAdmins() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	accounts, err := auth.LoadAccounts(cfg.AccountsFile)
	if err != nil {
		return err
	}
	p := auth.NewLocalProvider([]byte(cfg.JWTSecret), accounts)

	n, err := services.NewAdminBootstrap(s, p, cfg.CollAdmins).MakeAdmins(ctx)
	if n > 0 {
		if saveErr := auth.SaveAccounts(cfg.AccountsFile, p.Accounts()); saveErr != nil {
			return errors.Join(err, saveErr)
		}
	}
	if err != nil {
		return err
	}
	logger.Info.Printf("[makeAdmins] granted the admin role to %d account(s)", n)
	return nil
}

// hashPassword prints the bcrypt hash of a password read from in. A terminal
// is prompted without echo; otherwise the first line is used.
func hashPassword(in *os.File, out io.Writer) error {
	var pw []byte
	if fd := int(in.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		pw = b
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		pw = []byte(strings.TrimRight(line, "\r\n"))
	}
	if len(pw) == 0 {
		return errors.New("empty password")
	}

	h, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(h))
	return err
}
