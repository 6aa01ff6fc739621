package cli

import (
	"context"

	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/common"
)

// getPassword is swapped in tests to avoid touching the terminal.
var getPassword = GetPassword

// register prompts for email, username and password, creates the account
// and signs in with it.
func (a *App) register(ctx context.Context, _ []string) error {
	a.println(a.message("register.title"))
	email, err := GetSimpleText(a.reader, a.message("email.placeholder"), a.out)
	if err != nil {
		return err
	}
	username, err := GetSimpleText(a.reader, a.message("username.placeholder"), a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.message("password.placeholder"), a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.Register(ctx, models.Registration{Email: email, Username: username, Password: string(password)})
	if err != nil {
		a.println(a.message("registration.failed"))
		return err
	}
	a.println(a.message("registered", "username", u.Username))
	a.println(a.message("logged.in", "username", u.Username))
	return nil
}

// login prompts for credentials. The server accepts either the username or
// the email.
func (a *App) login(ctx context.Context, _ []string) error {
	a.println(a.message("login.title"))
	username, err := GetSimpleText(a.reader, a.message("email.placeholder"), a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.message("password.placeholder"), a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.Login(ctx, username, string(password))
	if err != nil {
		return err
	}
	a.println(a.message("logged.in", "username", u.Username))
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	a.session.Logout(ctx)
	a.println(a.message("logged.out"))
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	u, ok := a.session.User()
	if !ok {
		a.println(a.message("not.logged.in"))
		return nil
	}
	a.println(a.message("whoami", "username", u.Username, "email", u.Email))
	return nil
}
