package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/postmind-ai/postmind/internal/ai"
	"github.com/postmind-ai/postmind/internal/google"
	"github.com/postmind-ai/postmind/internal/instrumentation"
	"github.com/postmind-ai/postmind/internal/logging"
	"github.com/postmind-ai/postmind/internal/server"
)

// serveConfig collects everything the serve command needs, merged from
// flags, environment variables, and a local .env file in that order.
type serveConfig struct {
	Debug          bool
	HTTPAddr       string
	ClientURL      string
	SessionTimeout time.Duration
	MaxEmails      int64

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	MetricsEnabled bool
	MetricsAddr    string
}

func newServeCmd() *cobra.Command {
	var config serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server that backs the chat front-end.

The server handles Google OAuth login, keeps per-user sessions in memory,
and exposes the conversational endpoint that lists, summarizes, replies to
and deletes Gmail messages.

Configuration:
  Google OAuth (required):
    --google-client-id, --google-client-secret, --google-redirect-uri
    or GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URI

  Language model (required):
    --groq-api-key or GROQ_API_KEY

  A .env file in the working directory is loaded first; flags and real
  environment variables take precedence over it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadServeEnv(cmd, &config)
			return runServe(config)
		},
	}

	cmd.Flags().BoolVar(&config.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", server.DefaultAddr, "API server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().StringVar(&config.ClientURL, "client-url", "http://localhost:5173", "Browser front-end origin for CORS and OAuth redirects. Can also use CLIENT_URL env var.")
	cmd.Flags().DurationVar(&config.SessionTimeout, "session-timeout", server.DefaultSessionTimeout, "Idle session lifetime")
	cmd.Flags().Int64Var(&config.MaxEmails, "max-emails", 5, "How many emails a listing fetches")

	cmd.Flags().StringVar(&config.GoogleClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&config.GoogleClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&config.GoogleRedirectURI, "google-redirect-uri", "", "OAuth redirect URI registered with Google. Can also use GOOGLE_REDIRECT_URI env var.")

	cmd.Flags().StringVar(&config.GroqAPIKey, "groq-api-key", "", "Groq API key for the language model. Can also use GROQ_API_KEY env var.")
	cmd.Flags().StringVar(&config.GroqBaseURL, "groq-base-url", "", "Override the OpenAI-compatible endpoint. Can also use GROQ_BASE_URL env var.")
	cmd.Flags().StringVar(&config.GroqModel, "groq-model", "", "Override the model name. Can also use GROQ_MODEL env var.")

	cmd.Flags().BoolVar(&config.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&config.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnv fills unset flags from the environment. A .env file is
// loaded first so local development needs no exported variables;
// godotenv never overrides variables that are already set.
func loadServeEnv(cmd *cobra.Command, config *serveConfig) {
	_ = godotenv.Load()

	setIfUnchanged := func(flag string, dst *string, envKey string) {
		if !cmd.Flags().Changed(flag) && *dst == "" {
			if v := os.Getenv(envKey); v != "" {
				*dst = v
			}
		}
	}

	setIfUnchanged("http-addr", &config.HTTPAddr, "HTTP_ADDR")
	setIfUnchanged("client-url", &config.ClientURL, "CLIENT_URL")
	setIfUnchanged("google-client-id", &config.GoogleClientID, "GOOGLE_CLIENT_ID")
	setIfUnchanged("google-client-secret", &config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	setIfUnchanged("google-redirect-uri", &config.GoogleRedirectURI, "GOOGLE_REDIRECT_URI")
	setIfUnchanged("groq-api-key", &config.GroqAPIKey, "GROQ_API_KEY")
	setIfUnchanged("groq-base-url", &config.GroqBaseURL, "GROQ_BASE_URL")
	setIfUnchanged("groq-model", &config.GroqModel, "GROQ_MODEL")
	setIfUnchanged("metrics-addr", &config.MetricsAddr, "METRICS_ADDR")

	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v == "false" {
			config.MetricsEnabled = false
		}
	}
	if !cmd.Flags().Changed("session-timeout") {
		if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				config.SessionTimeout = d
			}
		}
	}
	if config.ClientURL == "" {
		config.ClientURL = "http://localhost:5173"
	}
	if config.GoogleRedirectURI == "" {
		config.GoogleRedirectURI = defaultRedirectURI(config.HTTPAddr)
	}
}

// defaultRedirectURI derives a localhost callback from the listen
// address, which is what a development OAuth client is registered with.
func defaultRedirectURI(addr string) string {
	if addr == "" {
		addr = server.DefaultAddr
	}
	if addr[0] == ':' {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/api/auth/callback", addr)
}

func runServe(config serveConfig) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(config.Debug)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("instrumentation shutdown failed", "error", err)
		}
	}()

	var metricsServer *server.MetricsServer
	if config.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     config.MetricsAddr,
			Provider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	oauth, err := google.New(google.Config{
		ClientID:     config.GoogleClientID,
		ClientSecret: config.GoogleClientSecret,
		RedirectURL:  config.GoogleRedirectURI,
	})
	if err != nil {
		return fmt.Errorf("invalid Google OAuth configuration: %w", err)
	}

	assistant, err := ai.NewClient(ai.Config{
		APIKey:  config.GroqAPIKey,
		BaseURL: config.GroqBaseURL,
		Model:   config.GroqModel,
	})
	if err != nil {
		return fmt.Errorf("invalid language model configuration: %w", err)
	}

	sc := server.NewServerContext(shutdownCtx, server.Config{
		Addr:           config.HTTPAddr,
		ClientURL:      config.ClientURL,
		SessionTimeout: config.SessionTimeout,
		MaxEmails:      config.MaxEmails,
	}, oauth, assistant, provider, logger)

	srv := server.New(sc)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	}

	return nil
}
