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
	"fmt"
	"io"
	"strconv"

	"github.com/Daskott/safecall/colors"
	"github.com/Daskott/safecall/server/dial"
	"github.com/Daskott/safecall/server/logger"
	"github.com/Daskott/safecall/server/services"
	"github.com/spf13/cobra"
)

func createServicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List emergency & crisis support numbers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			directory := services.NewDirectory(dial.NewIntentDialer(logger.NewNop()))

			printEntries(cmd.OutOrStdout(), "Emergency Services", directory.EmergencyNumbers())
			fmt.Fprintln(cmd.OutOrStdout())
			printEntries(cmd.OutOrStdout(), "Crisis Support", directory.SupportNumbers())
		},
	}

	cmd.AddCommand(createServicesContactCmd())

	return cmd
}

func createServicesContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "contact <emergency|support> <index>",
		Short:   "Call or text a service from the list",
		Example: "  safecall services contact support 1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := services.NewDirectory(dial.NewIntentDialer(logger.NewNop()))

			index, err := strconv.Atoi(args[1])
			if err != nil {
				return formattedError("invalid index %q", args[1])
			}

			entry, err := directory.Find(args[0], index)
			if err != nil {
				return err
			}

			intent, err := directory.Contact(context.Background(), entry)
			if err != nil {
				return err
			}

			cmd.Println(intent.Notice)
			if intent.URI != "" {
				cmd.Println(intent.URI)
			}
			return nil
		},
	}
}

func printEntries(out io.Writer, title string, entries []services.Entry) {
	fmt.Fprintln(out, colors.Bold(title))
	for i, entry := range entries {
		available := ""
		if entry.Available != "" {
			available = fmt.Sprintf(" [%s]", entry.Available)
		}
		fmt.Fprintf(out, "  %v. %s %s (%s)%s - %s\n",
			i, entry.Name, colors.Blue(entry.Number), entry.Action, available, entry.Description)
	}
}
