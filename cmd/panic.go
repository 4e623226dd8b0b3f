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
	"io"
	"os"
	"os/signal"

	"github.com/Daskott/safecall/colors"
	"github.com/Daskott/safecall/server/alert"
	"github.com/Daskott/safecall/server/location"
	"github.com/Daskott/safecall/server/logger"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

func createPanicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panic",
		Short: "Arm the panic button, press Ctrl-C before the countdown ends to cancel",
		Long: `Arms the panic button. After a 5 second countdown your emergency contacts are
notified & your location is shared. Press Ctrl-C during the countdown to cancel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			defer signal.Stop(interrupt)

			clk := clock.New()
			locator := location.NewProvider(fixedPositioner(cmd), location.DefaultOptions, clk)
			return runPanic(cmd.OutOrStdout(), clk, locator, interrupt)
		},
	}

	addCoordinateFlags(cmd)

	return cmd
}

// runPanic arms a trigger & blocks until the alert is cancelled or has gone
// back to idle after firing
func runPanic(out io.Writer, clk clock.Clock, locator alert.Locator, interrupt <-chan os.Signal) error {
	done := make(chan struct{}, 1)
	sink := alert.SinkFunc(func(signal alert.Signal) {
		printSignal(out, signal)
		if signal.Kind == alert.SignalReset || signal.Kind == alert.SignalCancelled {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	trigger := alert.NewTrigger(clk, locator, sink, logger.NewNop())
	defer trigger.Close()

	if _, armed := trigger.Arm(); !armed {
		return formattedError("unable to arm the panic button")
	}

	for {
		select {
		case <-interrupt:
			// Too late once the alert went out
			if _, cancelled := trigger.Cancel(); !cancelled {
				fmt.Fprintf(out, "%s the alert was already sent\n", warningLabel)
			}
		case <-done:
			return nil
		}
	}
}

func printSignal(out io.Writer, signal alert.Signal) {
	switch signal.Kind {
	case alert.SignalArmed:
		fmt.Fprintln(out, colors.Bold(colors.Red(signal.Message)))
	case alert.SignalTick:
		if signal.Remaining > 0 {
			fmt.Fprintln(out, colors.Yellow(fmt.Sprintf("%v...", signal.Remaining)))
		}
	case alert.SignalLocationAttached:
		fmt.Fprintf(out, "Location attached: %s\n", signal.Location)
	case alert.SignalLocationFailed:
		fmt.Fprintf(out, "%s unable to get location: %s\n", warningLabel, signal.Message)
	case alert.SignalContactsNotified:
		fmt.Fprintln(out, colors.Green(signal.Message))
	case alert.SignalLocationShared:
		if signal.Location == "" {
			fmt.Fprintf(out, "%s (location unavailable)\n", signal.Message)
			return
		}
		fmt.Fprintf(out, "%s: %s\n", signal.Message, location.MapsURL(signal.Location))
	case alert.SignalCancelled:
		fmt.Fprintln(out, colors.Yellow(signal.Message))
	}
}
