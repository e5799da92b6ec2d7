package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"

	"github.com/duynguyendang/routescan/internal/config"
	"github.com/duynguyendang/routescan/internal/manager"
	"github.com/duynguyendang/routescan/pkg/export"
	"github.com/duynguyendang/routescan/pkg/mcp"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/duynguyendang/routescan/pkg/scan"
	"github.com/duynguyendang/routescan/pkg/search"
	"github.com/duynguyendang/routescan/pkg/server"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	include    string
	exclude    []string
	sort       string
	workers    int
	jsonOut    bool
	verbose    bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	f := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "routescan",
		Short: "Discover HTTP routes declared in JavaScript and TypeScript projects",
		Long: `routescan walks a workspace and reports every HTTP route declared with
Express-style routers or controller decorators, with the file and line
that declares it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if f.verbose {
				level = slog.LevelDebug
			}
			f.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(f.logger)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "settings file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&f.include, "include", "", "include glob (default "+routes.DefaultIncludePattern+")")
	pf.StringSliceVar(&f.exclude, "exclude", nil, "folder names to skip, comma separated")
	pf.StringVar(&f.sort, "sort", "", "order routes by method, path, file or none")
	pf.IntVar(&f.workers, "workers", 0, "files scanned concurrently (default CPU count, max 8)")
	pf.BoolVar(&f.jsonOut, "json", false, "print JSON instead of text")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		listCmd(f),
		diagramCmd(f),
		findCmd(f),
		serveCmd(f),
		mcpCmd(f),
		versionCmd(),
	)
	return rootCmd
}

// settings merges the settings file, environment and command line flags.
func (f *globalFlags) settings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("include") {
		s.Include = f.include
	}
	if flags.Changed("exclude") {
		s.Exclude = append([]string{}, f.exclude...)
	}
	if flags.Changed("sort") {
		s.Sort = f.sort
	}
	if flags.Changed("workers") {
		s.Workers = f.workers
	}
	return s, nil
}

// newManager builds a scan manager from the merged settings.
func (f *globalFlags) newManager(cmd *cobra.Command) (*manager.ScanManager, *config.Settings, error) {
	s, err := f.settings(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.ParserConfig()
	if err != nil {
		return nil, nil, err
	}
	return manager.NewScanManager(cfg, f.logger, s.ScanOptions()...), s, nil
}

// scan runs one scan of the workspace named by args.
func (f *globalFlags) scan(cmd *cobra.Command, args []string) (*scan.Result, error) {
	mgr, _, err := f.newManager(cmd)
	if err != nil {
		return nil, err
	}
	defer mgr.CloseAll()
	return mgr.Refresh(cmd.Context(), rootArg(args))
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func listCmd(f *globalFlags) *cobra.Command {
	var byFile bool

	cmd := &cobra.Command{
		Use:   "list [root]",
		Short: "List every route in the workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := f.scan(cmd, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case f.jsonOut && byFile:
				return writeJSON(out, routes.GroupByFile(res.Routes))
			case f.jsonOut:
				return writeJSON(out, res)
			case byFile:
				printByFile(out, res)
			default:
				printTable(out, res.Root, res.Routes)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), res.Summary())
			return nil
		},
	}

	cmd.Flags().BoolVar(&byFile, "by-file", false, "group routes under their declaring file")
	return cmd
}

func diagramCmd(f *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diagram [root]",
		Short: "Render the route tree as a Mermaid or D3 diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "mermaid" && format != "d3" {
				return fmt.Errorf("unknown format %q (want mermaid or d3)", format)
			}
			res, err := f.scan(cmd, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "d3" || f.jsonOut {
				return writeJSON(out, export.D3(res.Routes))
			}
			_, err = io.WriteString(out, export.Mermaid(res.Routes))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "diagram format: mermaid or d3")
	return cmd
}

func findCmd(f *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "find <query> [root]",
		Short: "Fuzzy search routes by method and path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := f.scan(cmd, args[1:])
			if err != nil {
				return err
			}
			matches := search.FindRoutes(args[0], res.Routes, limit)
			out := cmd.OutOrStdout()
			if f.jsonOut {
				if matches == nil {
					matches = []search.Match{}
				}
				return writeJSON(out, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matching routes.")
				return nil
			}
			rs := make([]routes.Route, len(matches))
			for i, m := range matches {
				rs[i] = m.Route
			}
			printTable(out, res.Root, rs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "max number of results")
	return cmd
}

func serveCmd(f *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Run the REST API server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, s, err := f.newManager(cmd)
			if err != nil {
				return err
			}
			defer mgr.CloseAll()

			root, err := filepath.Abs(rootArg(args))
			if err != nil {
				return err
			}
			if _, err := mgr.Refresh(cmd.Context(), root); err != nil {
				f.logger.Warn("initial scan failed", "root", root, "error", err)
			}

			if addr == "" {
				addr = s.Addr()
			}
			f.logger.Info("Starting REST API server", "addr", addr, "root", root)
			return server.NewServer(mgr, root).Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT or :"+config.DefaultPort+")")
	return cmd
}

func mcpCmd(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [root]",
		Short: "Serve the workspace routes over MCP on stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := f.newManager(cmd)
			if err != nil {
				return err
			}
			defer mgr.CloseAll()

			root, err := filepath.Abs(rootArg(args))
			if err != nil {
				return err
			}
			return mcp.Run(cmd.Context(), mgr, root)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "routescan %s (%s)\n", version, commit)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, root string, rs []routes.Route) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tLOCATION")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s:%d\n", r.Method, r.Path, relPath(root, r.FilePath), r.LineNumber)
	}
	tw.Flush()
}

func printByFile(w io.Writer, res *scan.Result) {
	for _, g := range routes.GroupByFile(res.Routes) {
		fmt.Fprintln(w, relPath(res.Root, g.FilePath))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range g.Routes {
			fmt.Fprintf(tw, "  %s\t%s\tline %d\n", r.Method, r.Path, r.LineNumber)
		}
		tw.Flush()
	}
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
