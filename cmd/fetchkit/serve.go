package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/fetchkit/internal/adminapi"
	"github.com/vango-dev/fetchkit/internal/errors"
	"github.com/vango-dev/fetchkit/pkg/metrics"
	"github.com/vango-dev/fetchkit/pkg/reactive"
	"github.com/vango-dev/fetchkit/pkg/resource"
	"github.com/vango-dev/fetchkit/pkg/statehub"
)

const (
	topicUsers = "users"
	topicStats = "stats"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		addr string
		seed int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API",
		Long: `Run the demo admin API.

Besides the REST endpoints the server keeps two resources of its own: a
paginated view of the users and a polling view of the stats. Both are
streamed on /ws under the topics "users" and "stats".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.serve(ctx, seed); err != nil {
				return errors.New("E122").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().IntVar(&seed, "seed", 42, "number of demo users to create")

	return cmd
}

func (c *cli) serve(ctx context.Context, seed int) error {
	cfg := c.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metrics.WithRegistry(reg))

	hub := statehub.NewHub(c.log,
		statehub.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		statehub.WithClientObserver(m.SetHubClients),
	)
	go hub.Run(ctx)

	store := adminapi.NewStore()
	store.Seed(seed)

	// Resources and their hub watches are released together on return.
	scope := reactive.NewOwner(nil)
	defer scope.Dispose()

	users := resource.NewPaginated(storeUsers(store), c.resourceOptions(topicUsers,
		resource.WithInitialLimit(cfg.Pagination.Limit),
		resource.WithMetrics(m),
		resource.WithContext(ctx),
	)...)
	scope.OnCleanup(users.Close)
	scope.OnCleanup(statehub.WatchPaginated(hub, topicUsers, users))

	srv := adminapi.New(store,
		adminapi.WithLogger(c.log),
		adminapi.WithHub(hub),
		adminapi.WithRequestObserver(m),
		adminapi.WithGatherer(reg),
		adminapi.WithRateLimit(cfg.Server.RateLimitPerMinute),
		adminapi.WithChangeHook(func() { users.Refresh(ctx) }),
	)

	stats := resource.NewPolling(func(context.Context, resource.Params) (resource.CallResult[adminapi.Stats], error) {
		return resource.OK(srv.Stats()), nil
	}, c.resourceOptions(topicStats,
		resource.WithInterval(cfg.Polling.Interval),
		resource.WithEnabled(cfg.Polling.Enabled),
		resource.WithMetrics(m),
		resource.WithContext(ctx),
	)...)
	scope.OnCleanup(stats.Close)
	scope.OnCleanup(statehub.WatchResource(hub, topicStats, stats.Resource))

	return srv.Run(ctx, cfg.Server.Addr)
}

// storeUsers reads pages straight from the store. The page and limit
// params are always set by the paginated resource.
func storeUsers(store *adminapi.Store) resource.CallFunc[[]adminapi.User] {
	return func(_ context.Context, p resource.Params) (resource.CallResult[[]adminapi.User], error) {
		page, _ := p["page"].(int)
		limit, _ := p["limit"].(int)
		if page < 1 || limit < 1 {
			return resource.Fail[[]adminapi.User]("page and limit must be positive"), nil
		}

		users, total := store.List(page, limit)
		res := resource.OK(users)
		res.Pagination = &resource.PageInfo{Page: page, Limit: limit, Total: total}
		return res, nil
	}
}
