package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goosewin/kotoba/internal/config"
	"github.com/goosewin/kotoba/internal/logger"
	"github.com/goosewin/kotoba/internal/server"
)

var (
	serveFlags modelFlags
	serveHost  string
	servePort  int
	serveToken string
	serveOpen  bool
	serveLoad  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translation API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	addModelFlags(serveCmd, &serveFlags)
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "", "Host/IP to bind to (default server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port number (default server.port)")
	serveCmd.Flags().StringVarP(&serveToken, "token", "t", "", "Bearer token clients must send (default server.token)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Allow any origin and non-localhost binds without a token")
	serveCmd.Flags().BoolVar(&serveLoad, "load", true, "Load the model before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	host := firstNonEmpty(serveHost, config.String("server.host", "127.0.0.1"))
	port := servePort
	if port == 0 {
		port = config.Int("server.port", 8750)
	}
	token := firstNonEmpty(serveToken, config.String("server.token", ""))

	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d", port)
	}
	if !isLocalhost(host) && token == "" && !serveOpen {
		return errors.New("token required when binding to non-localhost address (use --token or --open)")
	}
	if !isLocalhost(host) && serveOpen && token == "" {
		fmt.Fprintln(os.Stderr, "Warning: server exposed without authentication (--open flag used)")
		fmt.Fprintln(os.Stderr, "Anyone with network access can run translations on this machine!")
	}

	translator, _, err := newTranslator(serveFlags)
	if err != nil {
		return err
	}
	defer translator.Close()
	if serveLoad {
		if err := translator.LoadModel(); err != nil {
			return err
		}
	}

	printServerInfo(host, port, token)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.StartServer(ctx, server.Options{
		Host:         host,
		Port:         port,
		Token:        token,
		Open:         serveOpen,
		MaxBodyBytes: int64(config.Int("server.max_body_size", 0)),
		RateLimit:    config.Float("server.rate_limit", 0),
		RateBurst:    config.Int("server.rate_burst", 4),
		Translator:   translator,
		Logger:       logger.L(),
	})
}

func printServerInfo(host string, port int, token string) {
	fmt.Printf("Starting kotoba translation server on %s:%d...\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /           - Health check")
	fmt.Println("  GET  /status     - Model and readiness")
	fmt.Println("  POST /load       - Load the model")
	fmt.Println("  POST /unload     - Unload the model")
	fmt.Println("  POST /translate  - Translate {text, source?, target?}")
	fmt.Println("  POST /detect     - Detect language {text}")
	if strings.TrimSpace(token) != "" {
		fmt.Println("Authentication: Bearer token required")
	} else {
		fmt.Println("Authentication: None (use --token to enable)")
	}
	fmt.Println("")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("")
}

func isLocalhost(host string) bool {
	switch host {
	case "127.0.0.1", "localhost", "::1":
		return true
	default:
		return false
	}
}
