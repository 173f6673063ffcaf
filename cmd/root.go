package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pj "github.com/crockeo/pj/internal/scan"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pj <pattern> [root...]",
	Short: "Find project directories by sentinel entry",
	Long: `pj scans one or more directory trees for directories that contain an
entry matching a sentinel pattern (a regular expression over entry names),
and stops descending into a subtree as soon as it finds a match there. The
typical use is locating every project root under a source tree at
interactive speed.

Examples:
  pj '^\.git$' ~/src
  pj --depth=2 --ignore=node_modules --ignore=vendor '^\.git$' ~/src ~/work
  pj -n 1 '^go\.mod$'`,
	Version: version,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), args[0], args[1:])
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. An interrupt cancels the scan; in-flight workers drain
// before the process exits.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.Flags().IntP("depth", "d", -1, "Maximum descent depth (0 scans only the roots, -1 is unlimited)")
	rootCmd.Flags().StringSliceP("ignore", "I", nil, "Directory names to exclude from the scan entirely")
	rootCmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers (0 uses one per CPU)")
	rootCmd.Flags().Bool("follow-symlinks", false, "Descend into symlinked directories")
	rootCmd.Flags().String("format", "text", "Output format (text|json)")
	rootCmd.Flags().IntP("max-results", "n", 0, "Stop after this many matches (0 reports all)")
	rootCmd.Flags().Bool("stats", false, "Print scan statistics to stderr when done")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().Bool("silent", false, "Disable all output except errors and matches")

	// Bind flags to viper
	viper.BindPFlag("depth", rootCmd.Flags().Lookup("depth"))
	viper.BindPFlag("ignore", rootCmd.Flags().Lookup("ignore"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("follow-symlinks", rootCmd.Flags().Lookup("follow-symlinks"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("max-results", rootCmd.Flags().Lookup("max-results"))
	viper.BindPFlag("stats", rootCmd.Flags().Lookup("stats"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.Flags().Lookup("silent"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".pj" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pj")
	}

	viper.AutomaticEnv() // read in environment variables that match

	_ = viper.ReadInConfig()
}

func runScan(ctx context.Context, pattern string, roots []string) error {
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot determine working directory: %w", err)
		}
		roots = []string{cwd}
	}

	depth := viper.GetInt("depth")
	if depth < -1 {
		return fmt.Errorf("invalid depth %d: must be non-negative, or -1 for unlimited", depth)
	}

	format := viper.GetString("format")
	switch format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (expected text or json)", format)
	}

	// Unusable roots are warnings as long as at least one root can be
	// scanned; only losing every root is a usage error.
	usable := make([]string, 0, len(roots))
	for _, root := range roots {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "pj: skipping root %s: %v\n", root, err)
		case !info.IsDir():
			fmt.Fprintf(os.Stderr, "pj: skipping root %s: not a directory\n", root)
		default:
			usable = append(usable, root)
		}
	}
	if len(usable) == 0 {
		return errors.New("no usable root directories")
	}

	opts := pj.Options{
		Pattern:        pattern,
		Roots:          usable,
		MaxDepth:       depth,
		IgnoreDirs:     viper.GetStringSlice("ignore"),
		Workers:        viper.GetInt("workers"),
		FollowSymlinks: viper.GetBool("follow-symlinks"),
		LogLevel:       pj.LogLevelWarn,
	}
	if viper.GetBool("verbose") {
		opts.LogLevel = pj.LogLevelDebug
	} else if viper.GetBool("silent") {
		opts.LogLevel = pj.LogLevelError
	}

	var lastStats pj.Stats
	if viper.GetBool("stats") {
		opts.Progress = func(stats pj.Stats) {
			lastStats = stats
		}
	}

	maxResults := viper.GetInt("max-results")
	seen := 0
	err := pj.Scan(ctx, opts, func(_ context.Context, m pj.Match) error {
		if format == "json" {
			line, err := json.Marshal(map[string]interface{}{
				"path":  m.Path,
				"root":  m.Root,
				"depth": m.Depth,
			})
			if err != nil {
				return err
			}
			fmt.Println(string(line))
		} else {
			fmt.Println(m.Path)
		}

		seen++
		if maxResults > 0 && seen >= maxResults {
			return pj.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return err
	}

	if viper.GetBool("stats") {
		fmt.Fprintf(os.Stderr, "scanned %d directories (%d ignored, %d errors), %d matches in %s\n",
			lastStats.DirsScanned, lastStats.DirsIgnored, lastStats.Errors,
			lastStats.Matches, lastStats.ElapsedTime)
	}
	return nil
}
