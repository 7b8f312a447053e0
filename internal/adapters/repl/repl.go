// Package repl is the interactive counter console: slash commands plus
// guided entry for sales and new products.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"inventory-admin/internal/adapters/cli"
	"inventory-admin/internal/app"
	"inventory-admin/internal/core"
)

var errExit = errors.New("exit")

// Run starts the interactive loop. Slash commands are dispatched to the CLI
// command set; any other input is treated as a product search.
func Run(ctx context.Context, svc app.ApplicationService, actor core.Actor, reader *bufio.Reader, w io.Writer) {
	fmt.Fprintln(w, "Inventory Console")
	if actor.Username != "" {
		fmt.Fprintf(w, "Signed in as %s (%s)\n", actor.Username, actor.Role)
	}
	fmt.Fprintln(w, "Type text to search products, or use /help for commands.")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	dispatchSlash := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		switch strings.ToLower(tokens[0]) {
		case "new-sale":
			return handleNewSale(ctx, reader, w, svc, actor, tokens[1:])
		case "new-product":
			return handleNewProduct(ctx, reader, w, svc, actor)
		case "help", "h":
			cli.Run(ctx, svc, actor, w, []string{"help"})
			fmt.Fprintln(w, "  new-sale [product-id]            guided sale entry")
			fmt.Fprintln(w, "  new-product                      guided product entry")
			fmt.Fprintln(w, "  exit                             leave the console")
			return nil
		case "exit", "quit", "e", "q":
			return errExit
		}
		return cli.Run(ctx, svc, actor, w, tokens)
	}

	for {
		fmt.Fprint(w, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		if strings.HasPrefix(input, "/") {
			if err := dispatchSlash(input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(w, "Goodbye!")
					return
				}
				fmt.Fprintf(w, "Error: %v\n", err)
			}
			continue
		}

		if err := cli.Run(ctx, svc, actor, w, append([]string{"products"}, strings.Fields(input)...)); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
}
