package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/zhangyunhao116/agentexec/internal/config"
	"github.com/zhangyunhao116/agentexec/internal/server"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool over HTTP",
		Long: `Serve the tool over HTTP:

  GET  /healthz    liveness
  GET  /v1/tool    tool definition
  POST /v1/exec    {"command": "...", "working_dir": "..."} -> {"id", "result"}
  POST /v1/check   {"command": "...", "working_dir": "..."} -> guard decision

With --watch the config file is reloaded when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watch
			}

			tool, err := cfg.NewTool(logger)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(tool, &server.Config{
				Addr:           cfg.Server.Addr,
				MaxConnections: cfg.Server.MaxConnections,
				Logger:         logger,
			})

			if cfg.Server.Watch && g.configFile != "" {
				w, err := config.NewWatcher(g.configFile, logger, func(next *config.Config) {
					t, err := next.NewTool(logger)
					if err != nil {
						logger.Error("rebuilding tool from reloaded config failed", "error", err)
						return
					}
					srv.SetTool(t)
				})
				if err != nil {
					return err
				}
				if err := w.Start(); err != nil {
					return err
				}
				defer w.Stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8088)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the config file when it changes")
	return cmd
}
