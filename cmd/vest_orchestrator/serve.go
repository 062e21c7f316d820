package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/infrastructure/restapi"
	"vest_orchestrator/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, serve)
	},
}

func serve(ctx context.Context, a *app, sess *session.Session) error {
	if err := a.refresher.Resync(ctx, sess); err != nil {
		logger.Warn("Initial sync failed, serving without a snapshot", "error", err)
	}

	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewSessionHandler(sess, a.refresher, a.slots, a.orchestrator, logger.Component("restapi"))
	router := restapi.SetupRouter(handler, a.registry, a.zap)

	srv := &http.Server{
		Addr:         a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.zap.Info("Server starting", zap.String("addr", a.cfg.Server.Port), zap.String("session", sess.ID))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-serverErr:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}
	a.zap.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return err
	}
	a.zap.Info("Server exiting")
	return nil
}
