// Package cli implements the navo command line.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
	"github.com/custodia-labs/navo/internal/logger"
)

// App holds the services a command runs against.
type App struct {
	Answer  driving.AnswerService
	Trace   driving.TraceService
	Cache   driving.CacheService
	Sources driving.SourceCatalog

	// Prune removes expired entries from persistent cache tiers. May be nil.
	Prune func(ctx context.Context) (int, error)

	// Close releases the services. May be nil.
	Close func() error
}

// Loader builds the App from the config file at path. An empty path
// selects the default location.
type Loader func(ctx context.Context, path string) (*App, error)

// version is set by Execute.
var version = "dev"

var (
	configPath string
	verbose    bool
	userID     string
	team       string
	project    string
)

var (
	loadApp Loader
	app     *App
)

// skipApp marks commands that run without loading configuration.
const skipApp = "skip-app"

var rootCmd = &cobra.Command{
	Use:   "navo",
	Short: "Answer questions from your organisation's knowledge sources",
	Long: `navo answers questions by querying connected knowledge sources live,
ranking what they return, filtering it by the caller's permissions and
recording how the answer was reached.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: cleanup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.navo/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&userID, "user", defaultUser(), "caller user ID (env NAVO_USER)")
	flags.StringVar(&team, "team", os.Getenv("NAVO_TEAM"), "caller team (env NAVO_TEAM)")
	flags.StringVar(&project, "project", os.Getenv("NAVO_PROJECT"), "caller project (env NAVO_PROJECT)")
}

// Execute runs the root command.
func Execute(ctx context.Context, v string, loader Loader) error {
	version = v
	loadApp = loader
	defer logger.Sync()
	err := rootCmd.ExecuteContext(ctx)
	if cerr := teardown(); err == nil {
		err = cerr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if _, ok := cmd.Annotations[skipApp]; ok || app != nil {
		return nil
	}
	if loadApp == nil {
		return errors.New("no service loader configured")
	}

	a, err := loadApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	app = a
	return nil
}

func cleanup(_ *cobra.Command, _ []string) error {
	return teardown()
}

// teardown closes the App. Safe to call more than once.
func teardown() error {
	if app == nil || app.Close == nil {
		app = nil
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

// caller returns the identity commands act as.
func caller() domain.CallerContext {
	return domain.CallerContext{UserID: userID, Team: team, Project: project}
}

func defaultUser() string {
	if u := os.Getenv("NAVO_USER"); u != "" {
		return u
	}
	return os.Getenv("USER")
}
