package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/pkg/router"
)

func matchCmd(flags *globalFlags) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "match <href>...",
		Short: "Match hrefs against the route tree",
		Long: `Match one or more hrefs without running any loader.

With --explain every candidate route is listed best first with its
per-segment scores, so ranking decisions can be checked.

Examples:
  routekit match /posts/42
  routekit match --explain /docs/en/intro`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			for _, href := range args {
				if err := printMatch(cmd.OutOrStdout(), p.tree, href, explain); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&explain, "explain", "e", false, "List every candidate with its scores")

	return cmd
}

func printMatch(w io.Writer, tree *router.Tree, href string, explain bool) error {
	if explain {
		cands, err := tree.Explain(href)
		if err != nil {
			return router.Describe(err)
		}
		fmt.Fprintf(w, "%s: %d candidates\n", href, len(cands))
		for i, c := range cands {
			fmt.Fprintf(w, "  %d. %s\n", i+1, c)
		}
		return nil
	}

	res, err := tree.Match(href)
	if err != nil {
		return router.Describe(err)
	}
	ids := make([]string, len(res.Chain))
	for i, n := range res.Chain {
		ids[i] = n.ID()
	}
	fmt.Fprintf(w, "%s -> %s\n", href, res.Leaf().FullPath())
	fmt.Fprintf(w, "  chain:  %s\n", strings.Join(ids, " > "))
	if len(res.Params) > 0 {
		fmt.Fprintf(w, "  params: %s\n", formatParams(res.Params))
	}
	return nil
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}
