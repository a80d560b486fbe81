package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "schedctl",
		Short: "Operate the production scheduler",
		Long:  "schedctl talks to a running prodfloor-scheduler server: list jobs and procedures, trigger a regeneration, and inspect a job's placed schedule.",
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.schedctl.yaml)")
	rootCmd.PersistentFlags().String("api-url", "http://localhost:9000", "base URL of the scheduler API")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the scheduler API")
	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	cobra.OnInitialize(initViperConfig)

	rootCmd.AddCommand(
		newJobsCmd(),
		newProceduresCmd(),
		newScheduleCmd(),
		newRegenerateCmd(),
		newReplCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initViperConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".schedctl")
		}
	}
	viper.SetEnvPrefix("SCHEDCTL")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func newClient() *apiClient {
	return &apiClient{
		baseURL: viper.GetString("api_url"),
		token:   viper.GetString("token"),
	}
}
