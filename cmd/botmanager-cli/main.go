package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/bloops-games/botmanager/internal/buildinfo"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/logging"
)

const usage = `Usage: botmanager-cli <command> [flags]

Commands:
  add-server   generate a server entry with bots and append it to the fleet file
  version      print the version
`

func main() {
	logger := logging.NewLogger(false).Named("botmanager-cli")
	if len(os.Args) < 2 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "add-server":
		if err := addServer(os.Args[2:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				os.Exit(2)
			}
			logger.Fatalf("add-server: %v", err)
		}
	case "version":
		_, _ = fmt.Fprint(os.Stdout, buildinfo.Greeting())
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func addServer(args []string) error {
	fs := flag.NewFlagSet("add-server", flag.ContinueOnError)
	path := fs.String("config", "config.yaml", "path to the fleet file, created when missing")

	var opts config.ServerOptions
	fs.StringVar(&opts.Name, "name", "", "name of the server")
	fs.StringVar(&opts.Address, "address", "", "IP address of the server")
	fs.IntVar(&opts.Port, "port", 0, "game port of the server")
	fs.IntVar(&opts.QueryPort, "query-port", 0, "query port of the server")
	fs.StringVar(&opts.Mod, "mod", "bf2", `mod the server runs by default, without "mods/"`)
	fs.IntVar(&opts.Slots, "slots", 0, "number of slots to fill with bots")
	fs.IntVar(&opts.ReservedSlots, "reserved-slots", 0, "number of slots to keep free for players")
	fs.IntVar(&opts.OverpopulateFactor, "overpopulate-factor", 2, "bots generated per slot")
	fs.BoolVar(&opts.NoAutobalance, "no-autobalance", false, "disable balancing bots between teams")
	fs.BoolVar(&opts.QueryDirectly, "query-directly", false, "query the server directly instead of using the status API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var existing []config.Server
	if _, err := os.Stat(*path); err == nil {
		if existing, err = config.LoadServers(*path); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(os.Stdout, "could not find %s, creating a new fleet file\n", *path)
	}

	s, err := config.GenerateServer(opts, existing)
	if err != nil {
		return err
	}

	if err := config.AppendServer(*path, s); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "added %s with %d bots to %s\n", s.Name, len(s.Bots), *path)
	return nil
}
