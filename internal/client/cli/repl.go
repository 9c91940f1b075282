package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Collections(ctx context.Context) error
	List(ctx context.Context, collection string) error
	Show(ctx context.Context, collection, id string) error
	Add(ctx context.Context, collection string) error
	Edit(ctx context.Context, collection, id string) error
	Delete(ctx context.Context, collection, id string) error
	Status(ctx context.Context, collection string) error
	Pending(ctx context.Context, collection string) error
	Sync(ctx context.Context, collection string) error
	Watch(ctx context.Context, collection string) error
	Unwatch(ctx context.Context, collection string) error
}

// command describes one REPL verb: how many arguments it takes and what it
// runs.
type command struct {
	usage string
	args  int
	run   func(ctx context.Context, a execIface, args []string) error
}

var commands = map[string]command{
	"register":    {usage: "register", run: func(ctx context.Context, a execIface, _ []string) error { return a.Register(ctx) }},
	"login":       {usage: "login", run: func(ctx context.Context, a execIface, _ []string) error { return a.Login(ctx) }},
	"logout":      {usage: "logout", run: func(ctx context.Context, a execIface, _ []string) error { return a.Logout(ctx) }},
	"whoami":      {usage: "whoami", run: func(ctx context.Context, a execIface, _ []string) error { return a.WhoAmI(ctx) }},
	"collections": {usage: "collections", run: func(ctx context.Context, a execIface, _ []string) error { return a.Collections(ctx) }},
	"list":        {usage: "list <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.List(ctx, args[0]) }},
	"show":        {usage: "show <collection> <id>", args: 2, run: func(ctx context.Context, a execIface, args []string) error { return a.Show(ctx, args[0], args[1]) }},
	"add":         {usage: "add <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.Add(ctx, args[0]) }},
	"edit":        {usage: "edit <collection> <id>", args: 2, run: func(ctx context.Context, a execIface, args []string) error { return a.Edit(ctx, args[0], args[1]) }},
	"delete":      {usage: "delete <collection> <id>", args: 2, run: func(ctx context.Context, a execIface, args []string) error { return a.Delete(ctx, args[0], args[1]) }},
	"status":      {usage: "status <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.Status(ctx, args[0]) }},
	"pending":     {usage: "pending <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.Pending(ctx, args[0]) }},
	"sync":        {usage: "sync <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.Sync(ctx, args[0]) }},
	"watch":       {usage: "watch <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.Watch(ctx, args[0]) }},
	"unwatch":     {usage: "unwatch <collection>", args: 1, run: func(ctx context.Context, a execIface, args []string) error { return a.Unwatch(ctx, args[0]) }},
}

var guestCommands = []string{"register", "login", "collections", "list", "show", "status"}

// runREPL starts a simple read–eval–print loop for the NutriKeeper CLI.
//
// It reads a line from reader, parses the first token as the command and
// the rest as its arguments, and dispatches to methods on a. Errors are
// printed and the loop goes on. The loop exits on EOF or when the user
// types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("nk %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(helpText(a.isLoggedIn()))
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		cmd, ok := commands[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if len(args) != cmd.args {
			printlnFn("Usage:", cmd.usage)
			continue
		}
		if err := cmd.run(ctx, a, args); err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

func helpText(loggedIn bool) string {
	if !loggedIn {
		return "Available commands: " + strings.Join(guestCommands, ", ") + ", exit"
	}
	names := make([]string, 0, len(commands))
	for _, n := range []string{"whoami", "collections", "list", "show", "add", "edit", "delete",
		"status", "pending", "sync", "watch", "unwatch", "logout"} {
		names = append(names, commands[n].usage)
	}
	return "Available commands: " + strings.Join(names, ", ") + ", exit"
}
