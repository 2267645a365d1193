package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests use a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context, userID string) error
	Update(ctx context.Context) error
	Admin(ctx context.Context) error
	Reset(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches them to a. It stops
// on EOF, on "exit"/"quit", or when ctx is cancelled. Command errors are
// reported to w and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func(context.Context) string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(w, "lootshop %s> ", statusFn(ctx))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				fmt.Fprintln(w, "Available commands: whoami, profile [userId], update, admin, logout, help, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, verify, resend, login, reset, help, exit")
			}
		case "register":
			cmdErr = a.Register(ctx)
		case "verify":
			cmdErr = a.Verify(ctx)
		case "resend":
			cmdErr = a.Resend(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "profile":
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			cmdErr = a.Profile(ctx, id)
		case "update":
			cmdErr = a.Update(ctx)
		case "admin":
			cmdErr = a.Admin(ctx)
		case "reset":
			cmdErr = a.Reset(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", describeError(cmdErr))
		}
	}
}
