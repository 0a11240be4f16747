package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// v holds the configuration shared by every command.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "surface",
	Short: "Surface delivers workflow UI components to chat clients",
	Long: `Surface bridges workflow engines and chat clients: nodes publish typed UI
components that are streamed over WebSocket, folded into a conversation history
and rendered progressively on the client.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default ./surface.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
