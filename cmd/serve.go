package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/jackc/envconf"
	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/httpz"
	"github.com/jackc/petclinic-e2e/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var shutdownSignals = []os.Signal{os.Interrupt}

var serveEnvconf = envconf.New()

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pet clinic fixture server",

	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer, _ := cmd.Flags().GetBool("http")
		listenAddress, _ := cmd.Flags().GetString("listen-address")
		logFormat, _ := cmd.Flags().GetString("log-format")
		secureCookies, _ := cmd.Flags().GetBool("secure-cookies")

		processCtx, processCancel := context.WithCancel(context.Background())

		logger := setupLogger(logFormat)

		interruptChan := make(chan os.Signal, 1)
		signal.Notify(interruptChan, shutdownSignals...)
		go func() {
			s := <-interruptChan
			signal.Reset() // Only listen for one interrupt. If another interrupt signal is received allow it to terminate the program.
			zerolog.Ctx(processCtx).Info().Str("signal", s.String()).Msg("shutdown signal received")
			processCancel()
		}()

		wg := &sync.WaitGroup{}
		if startHTTPServer {
			dbpool := setupPGXConnPool(processCtx, serveEnvconf.Value("DATABASE_URL"), logger)
			defer dbpool.Close()

			handler, err := httpz.NewHandler(
				db.NewSession(dbpool),
				logger,
				hexKey("CSRF_KEY", serveEnvconf.Value("CSRF_KEY"), 32, logger),
				secureCookies,
				hexKey("COOKIE_AUTHENTICATION_KEY", serveEnvconf.Value("COOKIE_AUTHENTICATION_KEY"), 64, logger),
				hexKey("COOKIE_ENCRYPTION_KEY", serveEnvconf.Value("COOKIE_ENCRYPTION_KEY"), 32, logger),
			)
			if err != nil {
				zerolog.Ctx(processCtx).Fatal().Err(err).Msg("Could not create HTTP handler")
			}

			server, err := server.NewServer(
				listenAddress,
				handler,
				zerolog.Ctx(processCtx),
			)
			if err != nil {
				zerolog.Ctx(processCtx).Fatal().Err(err).Msg("Could not create web server")
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				err := server.Serve()
				if err != nil {
					zerolog.Ctx(processCtx).Fatal().Err(err).Msg("HTTP server failed to start")
				}
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				<-processCtx.Done()
				err := server.Shutdown(context.Background())
				if err != nil {
					zerolog.Ctx(processCtx).Error().Err(err).Msg("HTTP server failed to cleanly shutdown")
				}
			}()
		}

		wg.Wait()
	},
}

func init() {
	serveEnvconf.Register(envconf.Item{Name: "DATABASE_URL", Default: "", Description: "The PostgreSQL connection string"})
	serveEnvconf.Register(envconf.Item{Name: "CSRF_KEY", Default: "", Description: "Hex encoded 32 byte key for CSRF tokens. Random if not set."})
	serveEnvconf.Register(envconf.Item{Name: "COOKIE_AUTHENTICATION_KEY", Default: "", Description: "Hex encoded 64 byte key for authenticating cookies. Random if not set."})
	serveEnvconf.Register(envconf.Item{Name: "COOKIE_ENCRYPTION_KEY", Default: "", Description: "Hex encoded 32 byte key for encrypting cookies. Random if not set."})

	long := &strings.Builder{}
	long.WriteString("Run the pet clinic fixture server.\n\nConfigure with the following environment variables:\n\n")
	for _, item := range serveEnvconf.Items() {
		long.WriteString(fmt.Sprintf("  %s\n    Default: %s\n    %s\n\n", item.Name, item.Default, item.Description))
	}
	serveCmd.Long = long.String()

	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("http", true, "Serve HTTP requests.")
	serveCmd.Flags().StringP("listen-address", "l", "127.0.0.1:8080", "The address to listen on for HTTP requests.")
	serveCmd.Flags().String("log-format", "json", "Log format (json or console)")
	serveCmd.Flags().Bool("secure-cookies", false, "Only send cookies over HTTPS.")
}
