package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fetchkit/internal/adminapi"
	"github.com/vango-dev/fetchkit/internal/errors"
	"github.com/vango-dev/fetchkit/pkg/httpsource"
	"github.com/vango-dev/fetchkit/pkg/resource"
	"github.com/vango-dev/fetchkit/pkg/s3source"
	"github.com/vango-dev/fetchkit/pkg/statehub"
)

const (
	sourceHTTP = "http"
	sourceS3   = "s3"
)

func statsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Read admin API statistics",
	}

	cmd.AddCommand(statsWatchCmd(c))

	return cmd
}

func statsWatchCmd(c *cli) *cobra.Command {
	var (
		source   string
		interval time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll statistics and print every update",
		Long: `Poll statistics on an interval through a polling resource.

With --source s3 the stats document is read from s3.bucket/s3.key instead
of the admin API. Stops after --count updates, or on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval == 0 {
				interval = c.cfg.Polling.Interval
			}
			if interval < 0 {
				return errors.New("E120").WithSuggestion("--interval must be positive.")
			}

			call, err := c.statsCall(source)
			if err != nil {
				return err
			}
			return c.watchStats(cmd, call, interval, count)
		},
	}

	cmd.Flags().StringVar(&source, "source", sourceHTTP, "where to read stats: http or s3")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default polling.interval)")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many updates (0 runs until interrupted)")

	return cmd
}

func (c *cli) statsCall(source string) (resource.CallFunc[adminapi.Stats], error) {
	switch source {
	case sourceHTTP:
		client, err := c.httpClient()
		if err != nil {
			return nil, err
		}
		return httpsource.Get[adminapi.Stats](client, "/stats"), nil

	case sourceS3:
		s3cfg := c.cfg.S3
		if s3cfg.Bucket == "" {
			return nil, errors.New("E120").WithSuggestion("Set s3.bucket (or FETCHKIT_S3_BUCKET) to read stats from S3.")
		}
		api := s3source.NewClient(s3source.ClientConfig{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		return s3source.Object[adminapi.Stats](api, s3cfg.Bucket, s3cfg.Key), nil

	default:
		return nil, errors.New("E120").WithSuggestion("--source must be http or s3.")
	}
}

func (c *cli) watchStats(cmd *cobra.Command, call resource.CallFunc[adminapi.Stats], interval time.Duration, count int) error {
	ctx := cmd.Context()

	poll := resource.NewPolling(call, c.resourceOptions("stats",
		resource.WithImmediate(false),
		resource.WithInterval(interval),
		resource.WithContext(ctx),
	)...)
	defer poll.Close()

	updates := make(chan resource.RequestState[adminapi.Stats], 16)
	unsubscribe := poll.Subscribe(func() {
		s := poll.State()
		if s.Loading || s.Status == resource.Idle {
			return
		}
		select {
		case updates <- s:
		default:
			c.log.Warn("stats update dropped", "generation", s.Generation)
		}
	})
	defer unsubscribe()

	poll.Execute(ctx, nil)

	for seen := 0; count == 0 || seen < count; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case s := <-updates:
			if err := c.printStats(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *cli) printStats(s resource.RequestState[adminapi.Stats]) error {
	switch c.output {
	case outputJSON, outputYAML:
		return c.render(statehub.StateSnapshot(s), nil)
	}

	line := resource.Match(s,
		resource.WhenError[adminapi.Stats](func(msg string) string {
			return "error: " + msg
		}),
		resource.WhenReady(func(st adminapi.Stats) string {
			return fmt.Sprintf("%s users=%d requests=%d clients=%d uptime=%ds",
				st.GeneratedAt.Format(time.TimeOnly), st.Users, st.Requests, st.HubClients, st.UptimeSeconds)
		}),
	)
	_, err := io.WriteString(c.out, line+"\n")
	return err
}
