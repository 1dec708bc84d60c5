package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fetchkit/internal/config"
	"github.com/vango-dev/fetchkit/internal/errors"
)

func configCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}

	cmd.AddCommand(configShowCmd(c), configInitCmd(c))

	return cmd
}

func configShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.output == outputTable {
				return renderConfigTable(c.out, c.cfg)
			}
			return c.render(c.cfg, nil)
		},
	}
}

func renderConfigTable(w io.Writer, cfg *config.Config) error {
	return propertyTable(w,
		[2]string{"server.addr", cfg.Server.Addr},
		[2]string{"server.rateLimitPerMinute", strconv.Itoa(cfg.Server.RateLimitPerMinute)},
		[2]string{"client.baseUrl", cfg.Client.BaseURL},
		[2]string{"client.timeout", cfg.Client.Timeout.String()},
		[2]string{"client.retryMax", strconv.Itoa(cfg.Client.RetryMax)},
		[2]string{"polling.interval", cfg.Polling.Interval.String()},
		[2]string{"polling.enabled", strconv.FormatBool(cfg.Polling.Enabled)},
		[2]string{"pagination.limit", strconv.Itoa(cfg.Pagination.Limit)},
		[2]string{"log.level", cfg.Log.Level},
		[2]string{"log.format", cfg.Log.Format},
		[2]string{"s3.bucket", cfg.S3.Bucket},
		[2]string{"s3.key", cfg.S3.Key},
	)
}

func configInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		// init must work when the existing configuration is broken.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Default().Save(path); err != nil {
				return errors.New("E102").Wrap(err)
			}
			_, err := fmt.Fprintf(c.out, "Wrote %s\n", path)
			return err
		},
	}
}
