package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

type flags struct {
	config           string
	userConfig       string
	disableCopyLocal bool
	removeHintPath   bool
	debug            bool
}

func newRootCommand(reg KeyReader, stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "resolverefs",
		Short: "Point C# projects at the local Space Engineers install",
		Long: `resolverefs finds the Space Engineers install through the Steam uninstall
registry entry and writes its Bin64 directory as the ReferencePath of every
project's .csproj.user file in the nearest solution.

Run it from anywhere inside the solution directory.

Optional project rewrites for references to game assemblies:
  --disableCopyLocal   set <Private>False</Private>
  --removeHintPath     remove <HintPath> elements`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{
			UnknownFlags: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolverefs(reg, f, stdout, stderr)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.SetNormalizeFunc(caseInsensitive)
	fs.StringVar(&f.config, "config", ".resolverefs", "resolverefs config file")
	fs.StringVar(&f.userConfig, "user-config", ".resolverefs-user", "resolverefs user config file")
	fs.BoolVar(&f.disableCopyLocal, "disableCopyLocal", false, "set Private=False on references to game assemblies")
	fs.BoolVar(&f.removeHintPath, "removeHintPath", false, "remove HintPath from references to game assemblies")
	fs.BoolVar(&f.debug, "debug", false, "output additional detail")

	return cmd
}

func caseInsensitive(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ToLower(name))
}

func newLogger(w io.Writer, debug bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "resolverefs",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func resolverefs(reg KeyReader, f flags, stdout, stderr io.Writer) error {
	out := newLogger(stdout, f.debug)
	errs := newLogger(stderr, f.debug)

	cfg, err := LoadConfig(f.config, f.userConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	opts := Options{
		DisableCopyLocal: f.disableCopyLocal || cfg.DisableCopyLocal,
		RemoveHintPath:   f.removeHintPath || cfg.RemoveHintPath,
	}

	path, err := LocateInstall(reg, cfg, out)
	if err != nil {
		return fmt.Errorf("failed to get path to %s from registry: %w", cfg.ProductDir, err)
	}
	installPath, err := ValidateInstallPath(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to get path to %s from registry: %w: %q", cfg.ProductDir, err, path)
	}
	out.Debug("Install path", "path", installPath)

	r, err := NewResolver(installPath, cfg, opts, out, errs)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	return r.Run(wd)
}

// run executes the command line and logs a failure to stderr. It returns the
// process exit code.
func run(reg KeyReader, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(reg, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		newLogger(stderr, false).Error(err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(systemRegistry{}, os.Args[1:], os.Stdout, os.Stderr))
}
