package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/gossipchain/app/services/node/handlers"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/signature"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/logger"
	"github.com/ardanlabs/gossipchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			Beneficiary       string        `conf:"default:miner1"`
			KeyFile           string        `conf:"help:ECDSA key whose address receives the mining rewards"`
			AccountsFolder    string        `conf:"default:zblock/accounts/,help:folder of named ECDSA keys"`
			GenesisFile       string        `conf:"default:zblock/genesis.json"`
			Advertise         string        `conf:"default:ws://localhost:9080/v1/p2p,help:p2p address given to the peers we dial"`
			KnownPeers        []string      `conf:"help:p2p addresses to dial at startup"`
			Selection         string        `conf:"default:work,help:chain selection rule (work or length)"`
			MaxPoolSize       int           `conf:"default:100"`
			StaleThreshold    time.Duration `conf:"default:2m"`
			SweepInterval     time.Duration `conf:"default:30s"`
			MiningSlice       time.Duration `conf:"default:50ms"`
			PingInterval      time.Duration `conf:"default:30s"`
			SendQueueSize     int           `conf:"default:64"`
			ReconnectAttempts int           `conf:"default:0"`
			ReconnectBackoff  time.Duration `conf:"default:2s"`
			AutoMine          bool          `conf:"default:false"`
			VerifySignatures  bool          `conf:"default:false"`
			TraceEvents       bool          `conf:"default:false,help:stream trace messages to event subscribers"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "gossip proof of work node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.State.GenesisFile)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}
	log.Infow("startup", "status", "genesis", "date", gen.Date, "difficulty", gen.Difficulty, "reward", gen.MiningReward)

	selection, err := ledger.ParseSelection(cfg.State.Selection)
	if err != nil {
		return err
	}

	ns, err := nameservice.New(cfg.State.AccountsFolder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// When a key file is used the rewards are paid to the address of the
	// key, otherwise to the account named by the beneficiary.
	beneficiary := ns.Resolve(cfg.State.Beneficiary)
	if cfg.State.KeyFile != "" {
		privateKey, err := crypto.LoadECDSA(cfg.State.KeyFile)
		if err != nil {
			return fmt.Errorf("unable to load private key for node: %w", err)
		}
		beneficiary = signature.PublicKeyToAddress(privateKey.PublicKey)
	}

	var verifier mempool.Verifier
	if cfg.State.VerifySignatures {
		verifier = func(tx ledger.Transaction) error {
			return tx.VerifySignature()
		}
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages can also be streamed to any
	// websocket client connected through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if cfg.State.TraceEvents {
			evts.Send(events.TypeTrace, s)
		}
	}

	// The state value represents the blockchain node and provides an API
	// for application support.
	st, err := state.New(state.Config{
		BeneficiaryID:     beneficiary,
		Host:              cfg.State.Advertise,
		Genesis:           gen,
		Selection:         selection,
		MaxPoolSize:       cfg.State.MaxPoolSize,
		StaleThreshold:    cfg.State.StaleThreshold,
		SweepInterval:     cfg.State.SweepInterval,
		MiningSlice:       cfg.State.MiningSlice,
		PingInterval:      cfg.State.PingInterval,
		SendQueueSize:     cfg.State.SendQueueSize,
		ReconnectAttempts: cfg.State.ReconnectAttempts,
		ReconnectBackoff:  cfg.State.ReconnectBackoff,
		AutoMine:          cfg.State.AutoMine,
		Verifier:          verifier,
		EvHandler:         ev,
		Notifier:          notifier{evts: evts},
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	log.Infow("startup", "status", "node ready", "beneficiary", beneficiary, "selection", selection)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
		NS:       ns,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the peer to peer traffic.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	})

	// Construct a server to service the requests against the mux. Peer
	// connections are long lived so there are no read or write timeouts.
	private := http.Server{
		Addr:     cfg.Web.PrivateHost,
		Handler:  privateMux,
		ErrorLog: zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for peer connections.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Known Peers

	for _, address := range cfg.State.KnownPeers {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := st.ConnectToPeer(ctx, address); err != nil {
			log.Errorw("startup", "status", "connect to known peer", "address", address, "ERROR", err)
		}
		cancel()
	}

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
