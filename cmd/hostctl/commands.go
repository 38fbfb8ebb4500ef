package main

import (
	"errors"
	"fmt"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/bcnelson/host-dashboard/internal/cluster"
	"github.com/bcnelson/host-dashboard/internal/hostform"
	"github.com/bcnelson/host-dashboard/internal/i18n"
	"github.com/bcnelson/host-dashboard/internal/storage/memory"
	"github.com/bcnelson/host-dashboard/internal/task"
	"github.com/bcnelson/host-dashboard/internal/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	apiURL       string
	token        string
	clientID     string
	clientSecret string
	tokenURL     string
	fileShim     string
	timeout      time.Duration
	verbose      bool
}

func (o *options) directory() (cluster.Directory, error) {
	if o.fileShim != "" {
		return cluster.NewFileShim(o.fileShim), nil
	}
	if o.clientID != "" && o.tokenURL == "" {
		return nil, errors.New("--token-url is required with --client-id")
	}
	return cluster.New(cluster.Options{
		BaseURL:      o.apiURL,
		Token:        o.token,
		ClientID:     o.clientID,
		ClientSecret: o.clientSecret,
		TokenURL:     o.tokenURL,
		Timeout:      o.timeout,
	})
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "hostctl",
		Short:         "Manage storage cluster hosts",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", "", "cluster API base URL")
	flags.StringVar(&opts.token, "token", "", "bearer token for the cluster API")
	flags.StringVar(&opts.clientID, "client-id", "", "OAuth2 client ID (client credentials flow)")
	flags.StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret")
	flags.StringVar(&opts.tokenURL, "token-url", "", "OAuth2 token endpoint")
	flags.StringVar(&opts.fileShim, "file-shim", "", "use a local JSON hosts file instead of the cluster API")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "cluster API request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	host := &cobra.Command{
		Use:   "host",
		Short: "List, add and update hosts",
	}
	host.AddCommand(newHostListCmd(opts), newHostAddCmd(opts), newHostMaintenanceCmd(opts))

	root.AddCommand(host, newVersionCmd())
	return root
}

func newHostListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List hosts in the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.directory()
			if err != nil {
				return err
			}
			hosts, err := dir.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HOSTNAME\tSTATUS\tADDR")
			for _, h := range hosts {
				status := string(h.Status)
				if status == "" {
					status = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Hostname, status, h.Addr)
			}
			return tw.Flush()
		},
	}
}

func newHostAddCmd(opts *options) *cobra.Command {
	var maintenance bool

	cmd := &cobra.Command{
		Use:   "add HOSTNAME",
		Short: "Add a host to the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.directory()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c := hostform.New(dir, task.NewWrapper(memory.New()), printNavigator(cmd), i18n.Default())
			if err := c.Init(cmd.Context()); err != nil {
				// Nothing is known to conflict; the cluster still rejects duplicates.
				log.Warn().Err(err).Msg("Could not check for duplicate hostnames")
			}
			c.SetForm(hostform.Form{Hostname: args[0], Maintenance: maintenance})

			err = c.Submit(cmd.Context())
			var verrs validation.ValidationErrors
			if errors.As(err, &verrs) {
				for _, e := range verrs {
					fmt.Fprintf(out, "%s: %s\n", e.Field, e.Message)
				}
				return fmt.Errorf("host %q was not added", args[0])
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&maintenance, "maintenance", false, "add the host in maintenance")
	return cmd
}

func newHostMaintenanceCmd(opts *options) *cobra.Command {
	var enabled bool

	cmd := &cobra.Command{
		Use:   "maintenance HOSTNAME",
		Short: "Put a host into or out of maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.directory()
			if err != nil {
				return err
			}
			c := hostform.New(dir, task.NewWrapper(memory.New()), printNavigator(cmd), i18n.Default())
			return c.SetMaintenance(cmd.Context(), args[0], enabled)
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", true, "maintenance state to set")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hostctl %s (%s)\n", Version, GitCommit)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		},
	}
}

// printNavigator reports where the dashboard would go next.
func printNavigator(cmd *cobra.Command) hostform.Navigator {
	return hostform.NavigatorFunc(func(route string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ok, see %s\n", route)
	})
}
