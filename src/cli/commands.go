package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"shader-lsp/src/internal/common"
	versionpkg "shader-lsp/src/internal/version"
)

// CLI Constants
const (
	CmdServe         = "serve"
	CmdMethods       = "methods"
	CmdInspect       = "inspect"
	CmdVersion       = "version"
	CmdConfig        = "config"
	CmdConfigInit    = "init"
	CmdInspectTree   = "syntax-tree"
	CmdInspectSource = "full-source"
	CmdInspectDebug  = "debug"
	CmdInspectHints  = "inlay-hints"
	FlagConfig       = "config"
	FlagListen       = "listen"
	FlagMetricsAddr  = "metrics-addr"
	FlagVerbose      = "verbose"
	FlagJSON         = "json"
	FlagRange        = "range"
	FlagPosition     = "position"
	FlagSettings     = "settings"
	FlagForce        = "force"
)

// CLI Variables
var (
	configPath   string
	listenAddr   string
	metricsAddr  string
	verbose      bool
	formatJSON   bool
	rangeSpec    string
	positionSpec string
	settingsPath string
	force        bool
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "shader-lsp",
	Short: "shader-lsp - a language server speaking the wgsl-analyzer protocol extensions",
	Long: `shader-lsp is a language server for WGSL shaders that speaks the wgsl-analyzer
extensions to the Language Server Protocol.

QUICK START:
  shader-lsp serve                           # Serve one editor over stdio
  shader-lsp serve --listen :7070            # Serve editors over TCP
  shader-lsp inspect syntax-tree main.wgsl   # Print the parse tree of a file

EXTENSIONS:
  wgsl-analyzer/syntaxTree            client → server
  wgsl-analyzer/debugCommand          client → server
  wgsl-analyzer/fullSource            client → server
  wgsl-analyzer/requestConfiguration  server → client
  wgsl-analyzer/readFile              server → client
  experimental/inlayHints             client → server

Use 'shader-lsp <command> --help' for detailed command information.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command definitions
var (
	serveCmd = &cobra.Command{
		Use:   CmdServe,
		Short: "Run the language server",
		Long: `Run the language server over stdio, or over TCP with --listen.

Over TCP every connection is its own session with its own documents and
settings. With --metrics-addr, Prometheus metrics are served on /metrics
together with /health and /methods.

Examples:
  shader-lsp serve
  shader-lsp serve --listen 127.0.0.1:7070 --metrics-addr :9090
  shader-lsp serve --config shader-lsp.yaml --verbose`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	methodsCmd = &cobra.Command{
		Use:   CmdMethods,
		Short: "List the protocol extensions",
		Long:  `List every wgsl-analyzer extension method with its direction, params and result.`,
		Args:  cobra.NoArgs,
		RunE:  runMethodsCmd,
	}

	inspectCmd = &cobra.Command{
		Use:   CmdInspect,
		Short: "Query a file through an in-process editor session",
		Long: `Open a file in an in-process client/server pair and print the answer to one
extension request. Every message runs through the same dispatcher an editor
would talk to; imports are read from disk relative to the file.

Positions are zero-based line:character in UTF-16 code units.

Examples:
  shader-lsp inspect syntax-tree main.wgsl
  shader-lsp inspect syntax-tree main.wgsl --range 2:0-4:1
  shader-lsp inspect full-source main.wgsl --settings defs.yaml
  shader-lsp inspect debug main.wgsl --position 3:8
  shader-lsp inspect inlay-hints main.wgsl --json`,
		RunE: runHelpCmd,
	}

	versionCmd = &cobra.Command{
		Use:   CmdVersion,
		Short: "Show version information",
		Long: `Display version information for shader-lsp.

Examples:
  shader-lsp version              # Show version number
  shader-lsp version --verbose    # Show detailed build information`,
		Args: cobra.NoArgs,
		RunE: runVersionCmd,
	}
)

// Config subcommands
var (
	configCmd = &cobra.Command{
		Use:   CmdConfig,
		Short: "Manage the configuration file",
		RunE:  runHelpCmd,
	}

	configInitCmd = &cobra.Command{
		Use:   CmdConfigInit,
		Short: "Write the default configuration file",
		Long: `Write the default configuration to --config, or to ~/.shader-lsp/config.yaml.

Examples:
  shader-lsp config init
  shader-lsp config init --config shader-lsp.yaml --force`,
		Args: cobra.NoArgs,
		RunE: runConfigInitCmd,
	}
)

// Inspect subcommands
var (
	inspectTreeCmd = &cobra.Command{
		Use:   CmdInspectTree + " <file>",
		Short: "Print the syntax tree, whole file or --range",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCmd(InspectSyntaxTree),
	}

	inspectSourceCmd = &cobra.Command{
		Use:   CmdInspectSource + " <file>",
		Short: "Print the preprocessed source with imports expanded",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCmd(InspectFullSource),
	}

	inspectDebugCmd = &cobra.Command{
		Use:   CmdInspectDebug + " <file>",
		Short: "Print analyzer state at --position",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCmd(InspectDebug),
	}

	inspectHintsCmd = &cobra.Command{
		Use:   CmdInspectHints + " <file>",
		Short: "Print inlay hints, whole file or --range",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCmd(InspectInlayHints),
	}
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional, will use defaults if not provided)")
	serveCmd.Flags().StringVarP(&listenAddr, FlagListen, "l", "", "Serve over TCP on this address instead of stdio")
	serveCmd.Flags().StringVar(&metricsAddr, FlagMetricsAddr, "", "Serve /metrics, /health and /methods on this address")
	serveCmd.Flags().BoolVarP(&verbose, FlagVerbose, "v", false, "Log at debug level")

	methodsCmd.Flags().BoolVar(&formatJSON, FlagJSON, false, "Output JSON")

	inspectCmd.PersistentFlags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional)")
	inspectCmd.PersistentFlags().StringVar(&settingsPath, FlagSettings, "", "YAML file answered to requestConfiguration")
	inspectCmd.PersistentFlags().StringVar(&rangeSpec, FlagRange, "", "Range as line:char-line:char")
	inspectCmd.PersistentFlags().StringVar(&positionSpec, FlagPosition, "", "Position as line:char")
	inspectCmd.PersistentFlags().BoolVar(&formatJSON, FlagJSON, false, "Output JSON")
	inspectCmd.PersistentFlags().BoolVarP(&verbose, FlagVerbose, "v", false, "Log protocol traffic at debug level")

	versionCmd.Flags().BoolVarP(&verbose, FlagVerbose, "v", false, "Show detailed version information")

	configInitCmd.Flags().StringVarP(&configPath, FlagConfig, "c", "", "Where to write the configuration file (optional)")
	configInitCmd.Flags().BoolVarP(&force, FlagForce, "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	inspectCmd.AddCommand(inspectTreeCmd)
	inspectCmd.AddCommand(inspectSourceCmd)
	inspectCmd.AddCommand(inspectDebugCmd)
	inspectCmd.AddCommand(inspectHintsCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// Command runners
func runServeCmd(cmd *cobra.Command, args []string) error {
	return RunServe(cmd.Context(), ServeOptions{
		ConfigPath:  configPath,
		Listen:      listenAddr,
		MetricsAddr: metricsAddr,
		Verbose:     verbose,
	})
}

func runMethodsCmd(cmd *cobra.Command, args []string) error {
	return PrintMethods(cmd.OutOrStdout(), formatJSON)
}

func runInspectCmd(kind InspectKind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return RunInspect(cmd.OutOrStdout(), kind, args[0], InspectOptions{
			ConfigPath:   configPath,
			SettingsPath: settingsPath,
			Range:        rangeSpec,
			Position:     positionSpec,
			JSON:         formatJSON,
			Verbose:      verbose,
		})
	}
}

func runConfigInitCmd(cmd *cobra.Command, args []string) error {
	return RunConfigInit(cmd.OutOrStdout(), configPath, force)
}

func runVersionCmd(cmd *cobra.Command, args []string) error {
	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), versionpkg.GetFullVersionInfo())
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "shader-lsp %s\n", versionpkg.GetVersion())
	return nil
}

func runHelpCmd(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		common.CLILogger.Error("%v", err)
		if desc := describeError(err); desc != "" {
			common.CLILogger.Info("Error code: %s", desc)
		}
	}
	return err
}
