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
	"time"

	"github.com/Daskott/safecall/server"
	"github.com/Daskott/safecall/server/auth"
	"github.com/Daskott/safecall/server/auth/key"
	"github.com/spf13/cobra"
)

var (
	deviceArg string
	ttlArg    time.Duration
)

func createTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a device token for the safecall server API",
		RunE: func(cmd *cobra.Command, args []string) error {
			viperConfig, err := loadConfig()
			if err != nil {
				return err
			}

			config, err := server.LoadConfig(viperConfig)
			if err != nil {
				return err
			}

			keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem([]byte(config.Safecall.PrivateKeyPem))
			if err != nil {
				return err
			}

			token, err := auth.EncodeJWT(auth.NewDeviceClaims(deviceArg, time.Now(), ttlArg), keyPair)
			if err != nil {
				return err
			}

			cmd.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deviceArg, "device", "d", "", "name of the device the token is for")
	cmd.Flags().DurationVar(&ttlArg, "ttl", 30*24*time.Hour, "how long the token is valid for, 0 never expires")
	cmd.MarkFlagRequired("device")

	return cmd
}
