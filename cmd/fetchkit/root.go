package main

import (
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/fetchkit/internal/config"
	"github.com/vango-dev/fetchkit/internal/errors"
	"github.com/vango-dev/fetchkit/pkg/httpsource"
	"github.com/vango-dev/fetchkit/pkg/resource"
)

const tracerName = "github.com/vango-dev/fetchkit/cmd/fetchkit"

// cli holds state shared by all commands.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	output     string
	baseURL    string
	logLevel   string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "fetchkit",
		Short: "Async data resources over HTTP and S3",
		Long: `fetchkit drives remote data through resources that track loading,
error and data state, paginate listings and poll on an interval.

The serve command runs a demo admin API and streams resource state over
WebSocket; the other commands consume that API as a client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (default ./fetchkit.yaml)")
	pf.StringVarP(&c.output, "output", "o", outputTable, "output format: table, json or yaml")
	pf.StringVar(&c.baseURL, "base-url", "", "admin API base URL, overrides client.baseUrl")
	pf.StringVar(&c.logLevel, "log-level", "", "log level, overrides log.level")

	root.AddCommand(
		serveCmd(c),
		usersCmd(c),
		statsCmd(c),
		configCmd(c),
		versionCmd(c),
	)

	return root
}

// load validates global flags and resolves the configuration.
func (c *cli) load() error {
	switch c.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return errors.New("E121").
			WithSuggestion("Use -o table, -o json or -o yaml.").
			Wrap(stderrors.New("unknown format " + c.output))
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return configError(err)
	}
	if c.baseURL != "" {
		cfg.Client.BaseURL = c.baseURL
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	c.cfg = cfg
	c.log = cfg.Log.NewLogger(c.errOut)
	return nil
}

func configError(err error) error {
	if stderrors.Is(err, config.ErrInvalid) {
		return errors.New("E101").
			WithSuggestion("Check fetchkit.yaml and FETCHKIT_* environment variables.").
			Wrap(err)
	}
	return errors.New("E100").Wrap(err)
}

// httpClient builds the admin API client from configuration.
func (c *cli) httpClient() (*httpsource.Client, error) {
	client, err := httpsource.New(c.cfg.Client.BaseURL,
		httpsource.WithRetryConfig(c.cfg.Client.RetryMax, 100*time.Millisecond, 2*time.Second),
		httpsource.WithTimeout(c.cfg.Client.Timeout),
		httpsource.WithLogger(c.log),
		httpsource.WithUserAgent("fetchkit/"+version),
	)
	if err != nil {
		return nil, errors.New("E140").Wrap(err)
	}
	return client, nil
}

// resourceOptions are the options every command-owned resource shares.
func (c *cli) resourceOptions(name string, extra ...resource.Option) []resource.Option {
	return append([]resource.Option{
		resource.WithName(name),
		resource.WithLogger(c.log),
		resource.WithTracer(otel.Tracer(tracerName)),
	}, extra...)
}

// requestError reports a failed settlement.
func requestError(msg string) *errors.CodedError {
	return errors.New("E141").Wrap(stderrors.New(msg))
}
