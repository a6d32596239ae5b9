// This program performs administrative tasks against a running node.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/gossipchain/app/tooling/admin/commands"
	"github.com/ardanlabs/gossipchain/foundation/logger"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	url := os.Getenv("NODE_URL")
	if url == "" {
		url = "http://localhost:8080"
	}

	log.Infow("admin", "version", build, "node", url)

	client := resty.New().
		SetBaseURL(url).
		SetTimeout(10 * time.Second)

	return processCommands(os.Args, client)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, client *resty.Client) error {
	if len(args) < 2 {
		return errors.New("usage: admin status|chain|pool|peers|connect|mine|accounts|balance|proof|send")
	}

	switch args[1] {
	case "status":
		if err := commands.Status(client); err != nil {
			return fmt.Errorf("getting status: %w", err)
		}
	case "chain":
		if err := commands.Chain(client); err != nil {
			return fmt.Errorf("getting chain: %w", err)
		}
	case "pool":
		if err := commands.Pool(client); err != nil {
			return fmt.Errorf("getting mempool: %w", err)
		}
	case "peers":
		if err := commands.Peers(client); err != nil {
			return fmt.Errorf("getting peers: %w", err)
		}
	case "connect":
		if err := commands.Connect(args, client); err != nil {
			return fmt.Errorf("connecting peer: %w", err)
		}
	case "mine":
		if err := commands.Mine(client); err != nil {
			return fmt.Errorf("starting mining: %w", err)
		}
	case "balance":
		if err := commands.Balance(args, client); err != nil {
			return fmt.Errorf("getting balance: %w", err)
		}
	case "accounts":
		if err := commands.Accounts(client); err != nil {
			return fmt.Errorf("getting accounts: %w", err)
		}
	case "proof":
		if err := commands.Proof(args, client); err != nil {
			return fmt.Errorf("getting proof: %w", err)
		}
	case "send":
		if err := commands.Send(args, client); err != nil {
			return fmt.Errorf("sending transaction: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
