/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Daskott/safecall/colors"
	devConfig "github.com/Daskott/safecall/dev/config"
	"github.com/Daskott/safecall/utils"
	"github.com/Daskott/safecall/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	isDevEnv bool

	warningLabel = colors.Yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", version.Version)

	rootCmd.AddCommand(
		createServerCmd(),
		createPanicCmd(),
		createServicesCmd(),
		createLocationCmd(),
		createTokenCmd(),
		createVersionCmd(),
	)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "safecall",
		Short: `safecall is a personal safety toolkit.

It runs a panic button with a 5 second cancellable countdown that alerts your
emergency contacts & shares your location, keeps your emergency contacts at hand,
and lists emergency & crisis support numbers.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.safecall/server.yml)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

func createVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the safecall version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("safecall v%s\n", version.Version)
		},
	}
}

// loadConfig reads the server config. In dev mode dev/config/server.yml is
// created from the default config when it doesn't exist yet.
func loadConfig() (*viper.Viper, error) {
	config := viper.New()

	configFile, err := configFilePath()
	if err != nil {
		return nil, err
	}

	if isDevEnv && cfgFile == "" {
		err = utils.WriteFileIfNotExist(configFile, []byte(devConfig.SERVER_YML))
		if err != nil {
			return nil, err
		}
	}

	config.SetConfigFile(configFile)

	// Secrets can live in the environment instead of the config file.
	// FYI: The env var overrides whatever is in the config file
	config.BindEnv("twilio.accountSid", "TWILIO_ACCOUNT_SID")
	config.BindEnv("twilio.authToken", "TWILIO_AUTH_TOKEN")
	config.BindEnv("safecall.privateKeyPem", "SAFECALL_PRIVATE_KEY_PEM")

	config.SetEnvPrefix("safecall")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv() // read in environment variables that match

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("error reading config file %s: %v", configFile, err)
	}

	return config, nil
}

func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}

	if isDevEnv {
		configDir, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(configDir, "dev", "config", "server.yml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".safecall", "server.yml"), nil
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(colors.Red(format), a...)
}
