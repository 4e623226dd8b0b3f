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
	"context"

	"github.com/Daskott/safecall/server"
	"github.com/Daskott/safecall/server/dial"
	"github.com/Daskott/safecall/server/location"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

var (
	latitudeArg  float64
	longitudeArg float64
	copyArg      bool
)

func createLocationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Print your current coordinates",
		Long: `Prints your coordinates from --lat/--lon, or from 'location' in the config file.
Use --copy to put them on the clipboard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := location.NewProvider(fixedPositioner(cmd), location.DefaultOptions, clock.New())

			coordinates, err := provider.Locate(context.Background())
			if err != nil {
				return formattedError("unable to get location: %v", err)
			}

			if copyArg {
				clipboard := dial.TerminalClipboard{Out: cmd.OutOrStdout()}
				if err := clipboard.WriteText(coordinates); err != nil {
					return err
				}
				cmd.Println("Location copied to clipboard!")
			}

			cmd.Println(location.Describe(coordinates))
			cmd.Println(location.MapsURL(coordinates))
			return nil
		},
	}

	addCoordinateFlags(cmd)
	cmd.Flags().BoolVarP(&copyArg, "copy", "c", false, "copy the coordinates to the clipboard")

	return cmd
}

func addCoordinateFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&latitudeArg, "lat", 0, "latitude of your current position")
	cmd.Flags().Float64Var(&longitudeArg, "lon", 0, "longitude of your current position")
}

// fixedPositioner returns the position from flags, else from config. Without
// either there is no way to locate the user, so it returns nil.
func fixedPositioner(cmd *cobra.Command) location.Positioner {
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		return location.Fixed{Latitude: latitudeArg, Longitude: longitudeArg}
	}

	viperConfig, err := loadConfig()
	if err != nil {
		return nil
	}

	config, err := server.LoadConfig(viperConfig)
	if err != nil || config.Location.Latitude == nil || config.Location.Longitude == nil {
		return nil
	}

	return location.Fixed{Latitude: *config.Location.Latitude, Longitude: *config.Location.Longitude}
}
