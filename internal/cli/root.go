package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	switch {
	case a.session.Visitor():
		return "(visitor)"
	case a.isLoggedIn():
		return fmt.Sprintf("(%s)", a.session.User().Login)
	default:
		return ""
	}
}

// Root runs the prompt loop until EOF or "exit".
func (a *App) Root(ctx context.Context) {
	fmt.Println("SumsDB archive client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("sumsync %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: search, list, sort [date|name|type], select all|none|<rows>, download <dir>, upload <files>, inspect <files>, recent, logout, exit")
			} else {
				fmt.Println("Available commands: login, visitor, inspect <files>, recent, exit")
			}
		case "login":
			a.login(ctx)
		case "visitor":
			a.visitor(ctx)
		case "search":
			a.search(ctx)
		case "inspect":
			a.inspect(args)
		case "list":
			a.list()
		case "sort":
			a.sortListing(args)
		case "select":
			a.selectRows(args)
		case "download":
			a.download(ctx, args)
		case "upload":
			a.upload(ctx, args)
		case "recent":
			a.recent(ctx)
		case "logout":
			a.logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
