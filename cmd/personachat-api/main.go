package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/personachat/backend/internal/ai"
	"github.com/personachat/backend/internal/chat"
	"github.com/personachat/backend/internal/config"
	"github.com/personachat/backend/internal/database"
	"github.com/personachat/backend/internal/logging"
	"github.com/personachat/backend/internal/profiles"
	"github.com/personachat/backend/internal/server"
	"github.com/personachat/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "personachat-api",
		Short: "Persona-aware chat backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("cors-origins", defaults.GetStringSlice("http.cors_origins"), "Allowed CORS origins")
	cmd.PersistentFlags().String("identity-header", defaults.GetString("http.identity_header"), "Trusted identity header name")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("openai-api-key", "", "Collaborator API key (overrides env)")
	cmd.PersistentFlags().String("openai-model", defaults.GetString("openai.model"), "Collaborator model name")
	cmd.PersistentFlags().String("openai-base-url", defaults.GetString("openai.base_url"), "Collaborator base URL override")
	cmd.PersistentFlags().Int("openai-timeout-seconds", defaults.GetInt("openai.timeout_seconds"), "Collaborator call timeout in seconds")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.cors_origins", "cors-origins")
	bindFlag(cmd, "http.identity_header", "identity-header")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "openai.api_key", "openai-api-key")
	bindFlag(cmd, "openai.model", "openai-model")
	bindFlag(cmd, "openai.base_url", "openai-base-url")
	bindFlag(cmd, "openai.timeout_seconds", "openai-timeout-seconds")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	// Column scanners report corrupt persisted lists through the global
	// logger; point it at the configured one.
	undoGlobals := zap.ReplaceGlobals(logger)
	defer undoGlobals()

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	aiClient, err := ai.NewClient(ai.Config{
		APIKey:  appConfig.OpenAIAPIKey,
		Model:   appConfig.OpenAIModel,
		BaseURL: appConfig.OpenAIBaseURL,
		Timeout: appConfig.OpenAITimeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	profileService, err := profiles.NewService(profiles.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	chatService, err := chat.NewService(chat.ServiceConfig{
		Database:     db,
		Clock:        time.Now,
		Logger:       logger,
		Profiles:     profileService,
		Users:        userService,
		Collaborator: aiClient,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		UsersService:    userService,
		ProfilesService: profileService,
		ChatService:     chatService,
		AIClient:        aiClient,
		Logger:          logger,
		IdentityHeader:  appConfig.IdentityHeader,
		AllowedOrigins:  appConfig.CORSOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
