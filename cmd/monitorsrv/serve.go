package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"

	"github.com/ccmonitor/server/internal/config"
	"github.com/ccmonitor/server/pkg/inventory"
	"github.com/ccmonitor/server/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newServeCmd() *cobra.Command {
	var (
		addr           string
		configPath     string
		domain         string
		ngrokAuthtoken string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor render server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("addr") {
				cfg.ListenAddr = addr
			}
			if cmd.Flags().Changed("domain") {
				cfg.Domain = domain
			}
			if cmd.Flags().Changed("ngrok-authtoken") {
				cfg.NgrokAuthtoken = ngrokAuthtoken
			}
			return runServe(cmd.Context(), cfg, configPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3000", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional; read at startup, later changes are re-read and logged only)")
	cmd.Flags().StringVar(&domain, "domain", "", "enable automatic ACME TLS for this domain via certmagic")
	cmd.Flags().StringVar(&ngrokAuthtoken, "ngrok-authtoken", "", "expose the listener through an ngrok tunnel using this authtoken")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, configPath string) error {
	printBanner(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := inventory.NewAggregator(cfg.SnapshotInterval, cfg.Retention)
	go aggregator.Run(ctx)
	defer aggregator.Close()

	registry := session.NewRegistry()

	// A reloaded config is logged and stored in cfg only: the aggregator,
	// router, rate window and listener keep the values they were built with.
	if configPath != "" {
		watchStop := make(chan struct{})
		defer close(watchStop)
		if err := config.Watch(configPath, watchStop, func(newCfg config.Config, err error) {
			if err != nil {
				log.Printf("[Config] reload failed: %v", err)
				return
			}
			log.Printf("[Config] reloaded from %s", configPath)
			cfg = newCfg
		}); err != nil {
			log.Printf("[Config] hot reload disabled: %v", err)
		}
	}

	router := newRouter(ctx, aggregator, registry, cfg.RateWindow)

	listener, err := bind(cfg)
	if err != nil {
		log.Printf("[Server] failed to bind %s: %v", cfg.ListenAddr, err)
		os.Exit(1)
	}
	log.Printf("[Server] listening on %s", listener.Addr())

	server := &http.Server{Handler: router}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(listener) }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Printf("[Server] shutting down")
		return server.Shutdown(context.Background())
	}
}

// bind opens the listener spec.md §6 describes by default, upgraded to
// automatic ACME TLS when a domain is configured, or tunneled through
// ngrok when an authtoken is configured. At most one of the two upgrades
// applies; plain HTTP on cfg.ListenAddr remains the default.
func bind(cfg config.Config) (net.Listener, error) {
	if cfg.NgrokAuthtoken != "" {
		tun, err := ngrok.Listen(context.Background(),
			ngrokconfig.HTTPEndpoint(),
			ngrok.WithAuthtoken(cfg.NgrokAuthtoken),
		)
		if err != nil {
			return nil, fmt.Errorf("ngrok: %w", err)
		}
		log.Printf("[Server] ngrok tunnel established: %s", tun.URL())
		return tun, nil
	}

	if cfg.Domain != "" {
		certmagic.DefaultACME.Agreed = true
		tlsConfig, err := certmagic.TLS([]string{cfg.Domain})
		if err != nil {
			return nil, fmt.Errorf("certmagic: %w", err)
		}
		return tls.Listen("tcp", cfg.ListenAddr, tlsConfig)
	}

	return net.Listen("tcp", cfg.ListenAddr)
}

func newRouter(ctx context.Context, aggregator *inventory.Aggregator, registry *session.Registry, rateWindow time.Duration) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello world")
	}).Methods(http.MethodGet)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(registry.List()); err != nil {
			log.Printf("[Server] failed to encode session list: %v", err)
		}
	}).Methods(http.MethodGet)

	router.HandleFunc("/ws/monitor", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[Server] websocket upgrade failed: %v", err)
			return
		}
		coordinator := session.NewCoordinator(conn, aggregator, registry, rateWindow)
		go func() {
			// ServeHTTP returns as soon as this handler returns (the
			// connection has already been hijacked for the WebSocket
			// upgrade), and net/http cancels r.Context() unconditionally at
			// that point. The session must outlive the handler, so it's
			// driven by the server-lifetime ctx instead, canceled only on
			// process shutdown.
			if err := coordinator.Run(ctx); err != nil {
				log.Printf("[Server] session ended: %v", err)
			}
		}()
	})

	return router
}

// printBanner logs the startup banner through the log system rather than
// writing to stdout directly, per spec.md §6 ("No stdout output outside
// the log system"). log's default output is stderr, so that's what we
// check for terminal-ness before deciding whether to colorize.
func printBanner(cfg config.Config) {
	colorize := term.IsTerminal(int(os.Stderr.Fd()))
	if colorize {
		log.Printf("\x1b[1mmonitorsrv\x1b[0m listening on %s", cfg.ListenAddr)
	} else {
		log.Printf("monitorsrv listening on %s", cfg.ListenAddr)
	}
}
