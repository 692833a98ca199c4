package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/fxnlabs/arraykit/internal/backend"
	"github.com/fxnlabs/arraykit/internal/config"
	"github.com/fxnlabs/arraykit/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve convolutions and dot tests over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Override server.listenPort"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("port") {
				e.cfg.Server.ListenPort = c.Int("port")
			}
			app := fx.New(serverOptions(e.cfg, e.log))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

// serverOptions wires the resolver and HTTP server into an fx application.
// The listener is opened on start so a port of 0 picks a free port.
func serverOptions(cfg *config.Config, log *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, log),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			newResolver,
			service.New,
			newHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

func newResolver(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *backend.Resolver {
	r := backend.Detect(cfg.Backend, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return r.Close()
		},
	})
	return r
}

// listener is filled in when the server starts.
type listener struct {
	net.Listener
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, svc *service.Service, log *zap.Logger) (*http.Server, *listener) {
	mux := http.NewServeMux()
	mux.Handle("/v1/", svc.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.ListenAddress, cfg.Server.ListenPort),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	ln := &listener{}
	log = log.Named("server")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}
			ln.Listener = l
			log.Info("Starting server", zap.String("address", l.Addr().String()))
			go func() {
				if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
					log.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping server")
			return srv.Shutdown(ctx)
		},
	})
	return srv, ln
}
