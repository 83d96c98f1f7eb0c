package cli

import (
	"context"
	"os"

	"github.com/caretsuite/sumsync/internal/common"
)

func (a *App) login(ctx context.Context) {
	userName, err := GetSimpleText(a.reader, "Enter SumsDB user name", os.Stdout)
	if err != nil {
		failure("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		failure("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, userName, string(password)); err != nil {
		failure("login failed: %v", err)
		return
	}

	user := a.session.User()
	success("logged in as %s", user.Login)
	if user.Quota > 0 {
		warning("quota: %d of %d bytes used", user.Usage, user.Quota)
	}
	if !user.UploadPermitted {
		warning("this account may not upload")
	}
}

func (a *App) visitor(ctx context.Context) {
	if err := a.session.LoginVisitor(ctx); err != nil {
		failure("visitor login failed: %v", err)
		return
	}
	success("connected as visitor (search and download only)")
}

func (a *App) logout(ctx context.Context) {
	a.session.Logout(ctx)
	a.listing = nil
	a.commonPrefix = ""
	success("logged out")
}
