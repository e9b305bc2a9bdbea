package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/store"
	"github.com/zombor/billed/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("billed")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "billed.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./bills", "Receipt storage directory path")
		storeURL       = fs.StringLong("store-url", "", "Remote store base URL (empty serves the built-in store)")
		storeUser      = fs.StringLong("store-user", "", "Remote store basic auth username (optional)")
		storePass      = fs.StringLong("store-pass", "", "Remote store basic auth password (optional)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		userEmail      = fs.StringLong("user-email", "", "Email of the connected employee")
		userType       = fs.StringLong("user-type", "Employee", "Type of the connected user")
		trustHeader    = fs.BoolLong("trust-user-header", "Let the "+web.UserHeader+" request header replace --user-email")
		abortOnFailure = fs.BoolLong("abort-on-failure", "Stay on the form when upload or persist fails")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	basicAuth := store.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	root := http.NewServeMux()

	var stores web.UserStore
	if *storeURL != "" {
		slog.Info("Using remote store", "url", *storeURL)
		stores = store.NewClient(*storeURL, store.BasicAuth{
			Username: *storeUser,
			Password: *storePass,
		})
	} else {
		// Initialize database
		slog.Info("Initializing database...")
		db, err := store.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		// Initialize storage
		slog.Info("Initializing storage...")
		blobs, err := store.NewLocalStorage(*storagePath)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}

		service := store.NewService(db, blobs, fmt.Sprintf("http://localhost:%d", *port))
		root.Handle("/api/", store.NewServer(service, basicAuth))
		stores = store.NewLocal(service)
	}

	policy := bill.DefaultPolicy
	if *abortOnFailure {
		policy = bill.Policy{ContinueOnFailure: false}
	}

	ui, err := web.NewServer(stores, web.Config{
		User:      bill.User{Type: *userType, Email: *userEmail},
		Policy:    policy,
		BasicAuth: basicAuth,

		TrustUserHeader: *trustHeader,
	})
	if err != nil {
		slog.Error("Failed to initialize web server", "error", err)
		os.Exit(1)
	}
	root.Handle("/", ui)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := http.ListenAndServe(addr, root); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}
	if *trustHeader {
		slog.Warn("Trusting the user header, any client can act as any employee", "header", web.UserHeader)
	}
	if *userEmail == "" && !*trustHeader {
		slog.Warn("No user email configured, bill pages will answer 401")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
