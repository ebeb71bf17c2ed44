package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default configuration file",
	Long:        `Writes the default settings to the config file unless it already exists.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipApp: ""},
	RunE:        runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file location",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipApp: ""},
	RunE:        runConfigPath,
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func openConfigStore() (*file.ConfigStore, error) {
	if configPath != "" {
		return file.NewConfigStoreAt(configPath)
	}
	return file.NewConfigStore("")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	written, err := store.WriteDefault()
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if !written {
		cmd.Printf("Config already exists at %s\n", store.Path())
		return nil
	}
	cmd.Printf("Wrote default config to %s\n", store.Path())
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	cmd.Println(store.Path())
	return nil
}
