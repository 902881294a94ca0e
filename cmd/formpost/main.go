package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/studiowebux/formpost/internal/cli"
	"github.com/studiowebux/formpost/internal/config"
	"github.com/studiowebux/formpost/internal/receiver"
	"github.com/studiowebux/formpost/internal/tui"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			// The outcome has already been printed
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "formpost",
	Short: "formpost - upload a file with a JSON payload",
	Long: `formpost submits a file together with a JSON text to an upload endpoint
as multipart/form-data (fields "excelFile" and "jsonData").

Run without arguments to start the interactive form.

Examples:
  formpost                                   # Start the interactive form
  formpost send -F report.xlsx               # Upload with the default JSON
  formpost send -F report.xlsx -j '{"a":1}'  # Upload with an explicit JSON text
  formpost send -F data.csv --json-file payload.jsonc -o yaml
  formpost serve                             # Run the reference receiver
  formpost --help                            # Show help`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return tui.Run(settings, version)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit the form once and print the outcome",
	Long: `Submit the form once without the interactive UI.

The JSON text is taken from --json, then --json-file, then piped stdin,
then the configured default. It is sent exactly as given, even when it is
not well-formed. Without --file the submission fails locally and nothing
is sent.

The exit code is 1 when the outcome is an error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return cli.Run(ctx, cli.RunOptions{
			Settings:     settings,
			FilePath:     flagFile,
			JSONText:     flagJSON,
			JSONSet:      cmd.Flags().Changed("json"),
			JSONFile:     flagJSONFile,
			OutputFormat: flagOutput,
			Query:        flagQuery,
			Insecure:     flagInsecure,
			Timeout:      flagTimeout,
			Pick:         flagPick,
			Verbose:      flagVerbose,
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference upload receiver",
	Long: `Run an HTTP server that accepts uploads on /api/upload/.

Uploaded files are saved to the media directory and recorded in a SQLite
database. Recorded uploads are listed on /api/uploads/.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), settings)
	},
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List uploads recorded by the receiver",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return runUploads(settings)
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert receiver schema migrations down to a version",
	Long: `Revert the receiver's schema migrations, newest first, until the
database is at --to. Recorded uploads are kept. The next serve re-applies
the reverted migrations.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return runRollback(settings)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

// Persistent flags
var (
	flagConfig string
	flagURL    string
)

// Flags for send
var (
	flagFile     string
	flagJSON     string
	flagJSONFile string
	flagOutput   string
	flagQuery    string
	flagInsecure bool
	flagTimeout  time.Duration
	flagPick     bool
	flagVerbose  bool
)

// Flags for serve
var (
	flagAddr     string
	flagMediaDir string
)

// Flags for uploads
var (
	flagLimit         int
	flagUploadsOutput string
	flagRollbackTo    int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $FORMPOST_CONFIG, ./.formpost.yaml, ~/.formpost/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Base URL of the upload server (overrides config and $FORMPOST_URL)")

	sendCmd.Flags().StringVarP(&flagFile, "file", "F", "", "File to upload")
	sendCmd.Flags().StringVarP(&flagJSON, "json", "j", "", "JSON text to send (verbatim)")
	sendCmd.Flags().StringVar(&flagJSONFile, "json-file", "", "Read the JSON text from a file (.jsonc comments are stripped)")
	sendCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output format (text/json/yaml/body)")
	sendCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "JMESPath applied to a successful JSON response")
	sendCmd.Flags().BoolVar(&flagInsecure, "insecure", false, "Skip TLS certificate verification")
	sendCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Request timeout (default from config)")
	sendCmd.Flags().BoolVar(&flagPick, "pick", false, "Choose the file interactively when --file is not set")
	sendCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log request details to stderr")
	sendCmd.MarkFlagsMutuallyExclusive("json", "json-file")

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&flagMediaDir, "media-dir", "", "Directory for uploaded files (default from config)")

	uploadsCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "Number of uploads to show (0 for all)")
	uploadsCmd.Flags().StringVarP(&flagUploadsOutput, "output", "o", "text", "Output format (text/json/yaml)")

	rollbackCmd.Flags().IntVar(&flagRollbackTo, "to", 0, "Target schema version (0 reverts every migration)")
	uploadsCmd.AddCommand(rollbackCmd)

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings initializes the config directory and applies flag overrides
func loadSettings() (config.Settings, error) {
	if err := config.Initialize(); err != nil {
		return config.Settings{}, fmt.Errorf("failed to initialize config: %w", err)
	}

	path := flagConfig
	if path == "" {
		path = config.GetConfigFilePath()
	}

	settings, err := config.Load(path)
	if err != nil {
		return settings, err
	}

	if flagURL != "" {
		settings.BaseURL = flagURL
	}
	return settings, nil
}

// runServe runs the receiver until SIGINT/SIGTERM
func runServe(parent context.Context, settings config.Settings) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	addr := settings.Serve.Addr
	if flagAddr != "" {
		addr = flagAddr
	}
	mediaDir := settings.Serve.MediaDir
	if flagMediaDir != "" {
		mediaDir = flagMediaDir
	}

	store, err := receiver.OpenStore(settings.Serve.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := receiver.NewServer(receiver.Config{
		Addr:           addr,
		MediaDir:       mediaDir,
		MaxUploadBytes: settings.Serve.MaxUploadMB << 20,
		Logger:         logger,
	}, store)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	})

	return g.Wait()
}

// runUploads prints the receiver's upload ledger
func runUploads(settings config.Settings) error {
	store, err := receiver.OpenStore(settings.Serve.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(flagLimit)
	if err != nil {
		return err
	}

	switch flagUploadsOutput {
	case "json":
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(records)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	case "text":
		if len(records) == 0 {
			fmt.Println("No uploads recorded.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-30s %8d B  %s\n", rec.ReceivedAt, rec.FileName, rec.Size, rec.ID)
		}
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", flagUploadsOutput)
	}

	return nil
}

// runRollback reverts the receiver's schema to flagRollbackTo
func runRollback(settings config.Settings) error {
	store, err := receiver.OpenStore(settings.Serve.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	from, err := store.SchemaVersion()
	if err != nil {
		return err
	}

	to, err := store.RollbackTo(flagRollbackTo)
	if err != nil {
		return err
	}

	fmt.Printf("Schema version %d -> %d\n", from, to)
	return nil
}
