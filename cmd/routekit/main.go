package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/config"
	rkerrors "github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/internal/treefile"
	"github.com/vango-dev/routekit/pkg/loadercache"
	"github.com/vango-dev/routekit/pkg/router"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configDir string
	treePath  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		rkerrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "routekit",
		Short: "Inspect and serve routekit route trees",
		Long: `routekit loads a route tree file and runs the router against it.

  • match hrefs and explain the ranking
  • load an href and print the committed state or its dehydrated form
  • serve a debug HTTP API with Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configDir, "config", "c", ".", "Directory containing routekit.json")
	rootCmd.PersistentFlags().StringVarP(&flags.treePath, "tree", "t", "", "Route tree file (default from routekit.json)")

	rootCmd.AddCommand(
		matchCmd(flags),
		loadCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// project is a loaded config plus its route tree.
type project struct {
	cfg  *config.Config
	file *treefile.File
	tree *router.Tree
}

func loadProject(flags *globalFlags) (*project, error) {
	cfg, err := config.Load(flags.configDir)
	if err != nil {
		return nil, err
	}
	if flags.treePath != "" {
		cfg.Tree = flags.treePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	file, err := treefile.Load(cfg.TreePath())
	if err != nil {
		return nil, err
	}
	if cfg.CaseSensitive {
		file.CaseSensitive = true
	}
	tree, err := file.Tree()
	if err != nil {
		return nil, router.Describe(err)
	}
	return &project{cfg: cfg, file: file, tree: tree}, nil
}

// newRouter builds a router from the project. cacheOpts are applied after
// the configured cache settings and extra after every other option.
func (p *project) newRouter(cacheOpts []loadercache.Option, extra ...router.Option) (*router.Router, error) {
	opts, err := p.cfg.RouterOptions(cacheOpts...)
	if err != nil {
		return nil, err
	}
	opts = append(opts, p.file.Options()...)
	opts = append(opts, extra...)
	return router.New(p.tree, opts...)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
