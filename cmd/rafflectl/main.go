// Command rafflectl inspects and edits a stored raffle without the web server.
//
//	rafflectl -raffle <id> list
//	rafflectl -raffle <id> add <name>
//	rafflectl -raffle <id> remove <name>
//	rafflectl -raffle <id> reset
//	rafflectl -raffle <id> draw
//
// It works on the persisted slot, so a running server only sees the change
// once it reloads the raffle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/thewug/cakeraffle/config"
	"github.com/thewug/cakeraffle/roster"
	"github.com/thewug/cakeraffle/store"
)

var ErrUsage = errors.New("usage: rafflectl -raffle <id> list|add <name>|remove <name>|reset|draw")

func main() {
	config_path := flag.String("config", "config.yml", "path to the YAML settings file")
	raffle_id := flag.String("raffle", "", "raffle id, as found in the session")
	flag.Parse()

	cfg, err := config.Load(*config_path)
	if err != nil {
		color.Red.Println("config:", err)
		os.Exit(1)
	}

	slots, err := store.Open(cfg.Storage)
	if err != nil {
		color.Red.Println("storage:", err)
		os.Exit(1)
	}
	defer slots.Close()

	err = run(context.Background(), os.Stdout, slots, *raffle_id, flag.Args(), rand.Float64)
	if err != nil {
		color.Red.Println(err)
		slots.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, slots store.Slots, raffle_id string, args []string, src roster.Source) error {
	if raffle_id == "" || len(args) == 0 {
		return ErrUsage
	}

	registry := store.NewRegistry(slots, slog.New(slog.NewTextHandler(io.Discard, nil)))
	raffle, err := registry.Open(ctx, raffle_id)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		list(out, raffle.Snapshot().Names)
		return nil

	case "add", "remove":
		if len(args) != 2 {
			return ErrUsage
		}
		if args[0] == "add" {
			name, err := raffle.Add(ctx, args[1])
			if err != nil {
				return fmt.Errorf("add %q: %w", args[1], err)
			}
			color.Fprintf(out, "<green>%s added to raffle</>\n", name)
			return nil
		}
		err := raffle.Remove(ctx, args[1])
		if err != nil {
			return fmt.Errorf("remove %q: %w", args[1], err)
		}
		color.Fprintf(out, "<cyan>%s removed from raffle</>\n", args[1])
		return nil

	case "reset":
		if !raffle.Reset(ctx) {
			color.Fprintln(out, "<cyan>Nothing to reset!</>")
			return nil
		}
		color.Fprintln(out, "<cyan>Raffle has been reset.</>")
		return nil

	case "draw":
		winner, err := store.RaffleDraw(raffle, src)
		if err != nil {
			return fmt.Errorf("draw: %w", err)
		}
		color.Fprintf(out, "<magenta>%s</> wins the cake!\n", winner)
		return nil
	}
	return ErrUsage
}

func list(out io.Writer, names []string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Participant"})
	for i, n := range names {
		table.Append([]string{strconv.Itoa(i + 1), n})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d total", len(names))})
	table.Render()
}
