// Package cli wires the dirmcp commands together with cobra.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"dirmcp/internal/catalog"
	"dirmcp/internal/config"
	"dirmcp/internal/httpapi"
	"dirmcp/internal/logging"
	"dirmcp/internal/mcp"

	"github.com/charmbracelet/glamour"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X dirmcp/internal/cli.Version=...".
var Version = "dev"

const renderWidth = 80

type app struct {
	logger     *logging.AppLogger
	configPath string
	dir        string
	verbose    bool
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand(logging.GetDefault())
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		errOut := root.ErrOrStderr()
		fmt.Fprintln(errOut, newStyles(errOut).Error.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree. Output goes to the command's
// configured writers so tests can capture it.
func NewRootCommand(logger *logging.AppLogger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:           "dirmcp",
		Short:         "Serve the files of one directory to MCP clients, read-only",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger.SetVerbose(a.verbose)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/dirmcp/config.yaml)")
	flags.StringVarP(&a.dir, "dir", "d", "", "directory to serve (overrides config and DIRMCP_DIRECTORY)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log info messages to stderr")

	root.AddCommand(
		a.serveCommand(),
		a.httpCommand(),
		a.lsCommand(),
		a.catCommand(),
		a.configCommand(),
	)
	return root
}

// loadConfig resolves the effective configuration: file, environment, then
// the --dir flag. The result is validated.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.dir != "" {
		cfg.Directory = a.dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) openCatalog() (*catalog.Catalog, *config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.New(cfg.Directory, a.logger, catalog.WithMaxFileSize(cfg.MaxFileSize))
	if err != nil {
		return nil, nil, err
	}
	return cat, cfg, nil
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			server := mcp.NewServer(cfg, a.logger, Version)
			defer server.Stop()
			return server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (a *app) httpCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the read-only JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, cfg, err := a.openCatalog()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.HTTPAddr
			}

			gin.SetMode(gin.ReleaseMode)
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s\n", cat.BaseDir(), addr)
			return httpapi.New(cat, a.logger).Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultHTTPAddr+")")
	return cmd
}

func (a *app) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the files that would be served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := a.openCatalog()
			if err != nil {
				return err
			}

			files, err := cat.ListFiles()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isTerminal(out) {
				st := newStyles(out)
				fmt.Fprintln(out, st.Title.Render(cat.BaseDir()))
				fmt.Fprintln(out, st.Subtle.Render(fmt.Sprintf("%d file(s)", len(files))))
			}
			for _, f := range files {
				fmt.Fprintln(out, f.Name)
			}
			return nil
		},
	}
}

func (a *app) catCommand() *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "cat <name>",
		Short: "Print the content of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := a.openCatalog()
			if err != nil {
				return err
			}

			content, err := cat.ReadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !render {
				_, err := io.WriteString(out, content.Content)
				return err
			}

			rendered, err := renderMarkdown(content.Content, isTerminal(out))
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, rendered)
			return err
		},
	}

	cmd.Flags().BoolVarP(&render, "render", "r", false, "render markdown with glamour")
	return cmd
}

func renderMarkdown(content string, tty bool) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if tty {
		style = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(renderWidth))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return rendered, nil
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <directory>",
		Short: "Write a config file serving <directory>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}

			cfg, err := config.CreateNewConfig(args[0], path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := newStyles(out)
			fmt.Fprintln(out, st.Success.Render("Configuration written to "+path))
			fmt.Fprintln(out, st.Subtle.Render("Serving "+cfg.Directory))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}

			status := "missing"
			if _, err := os.Stat(path); err == nil {
				status = "exists"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, status)
			return nil
		},
	}

	cmd.AddCommand(initCmd, pathCmd)
	return cmd
}

func (a *app) resolveConfigPath() (string, error) {
	if p := strings.TrimSpace(a.configPath); p != "" {
		return p, nil
	}
	return config.ConfigPath()
}
