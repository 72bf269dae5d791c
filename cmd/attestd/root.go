package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "attestd",
	Short: "SGX remote-attestation verifier",
	Long:  "attestd verifies Intel SGX remote-attestation certificates against a pinned IAS root CA, as a long-running service or a one-shot offline check.",
}

func init() {
	cobra.OnInitialize(initViperEnv)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to attestd YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(verifyCmd)
}

func initViperEnv() {
	viper.SetEnvPrefix("ATTESTD")
	viper.AutomaticEnv()
	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
}
