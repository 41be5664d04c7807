package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/pkg/codec"
	"github.com/vango-dev/routekit/pkg/router"
)

func loadCmd(flags *globalFlags) *cobra.Command {
	var (
		timeout   time.Duration
		dehydrate bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "load <href>",
		Short: "Navigate to an href and print the committed state",
		Long: `Navigate a fresh router to href, running every beforeLoad and loader,
and print the committed matches.

With --dehydrate the snapshot a server would embed for the client is
written instead, encoded as msgpack or JSON.

Examples:
  routekit load /posts/42
  routekit load --dehydrate --format=json /posts/42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			r, err := p.newRouter(nil)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if err := r.Navigate(ctx, args[0]); err != nil {
				return router.Describe(err)
			}

			if !dehydrate {
				printState(cmd.OutOrStdout(), r.State())
				return nil
			}
			f := p.cfg.Format()
			if format != "" {
				if f, err = codec.ParseFormat(format); err != nil {
					return err
				}
			}
			d, err := r.Dehydrate()
			if err != nil {
				return err
			}
			data, err := codec.Marshal(d, f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Abort the navigation after this long")
	cmd.Flags().BoolVar(&dehydrate, "dehydrate", false, "Write the dehydrated snapshot")
	cmd.Flags().StringVar(&format, "format", "", "Dehydration format: msgpack or json (default from routekit.json)")

	return cmd
}

func printState(w io.Writer, st router.State) {
	fmt.Fprintf(w, "%s\n", st.Location.Href)
	if st.Location.MaskedLocation != nil {
		fmt.Fprintf(w, "  shown as %s\n", st.Location.MaskedLocation.Href)
	}
	for _, from := range st.Redirects {
		fmt.Fprintf(w, "  redirected from %s\n", from)
	}
	if st.Error != nil {
		fmt.Fprintf(w, "  error: %v\n", st.Error)
	}
	for _, m := range st.Matches {
		fmt.Fprintf(w, "  %-24s %-10s", m.RouteID, m.Status)
		switch {
		case m.Error != nil:
			fmt.Fprintf(w, " %v", m.Error)
		case m.LoaderData != nil:
			fmt.Fprintf(w, " %v", m.LoaderData)
		}
		fmt.Fprintln(w)
	}
}
