package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/papertrader/internal/scheduler"
	"github.com/rustyeddy/papertrader/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the equity snapshot scheduler",
		Long: `Serve the trading API until interrupted.

Equity snapshots of every account are recorded on the cron schedule in
snapshots.schedule (seconds field first). An empty schedule disables them.

Example:
  papertrader serve --addr :8080 --db ./papertrader.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			srv := server.New(server.Config{
				Addr:        a.cfg.Server.Addr,
				DevMode:     a.cfg.Server.DevMode,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				Version:     version,
				Log:         a.log,
				Engine:      a.engine,
				Market:      a.market,
				Charts:      a.charts,
			})

			sched := scheduler.New(a.log)
			if schedule := a.cfg.Snapshots.Schedule; schedule != "" {
				if err := sched.AddJob(schedule, scheduler.NewSnapshotJob(a.engine, time.Minute, a.log)); err != nil {
					return err
				}
			}
			sched.Start()
			defer sched.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
