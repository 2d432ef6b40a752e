// Command chainstate reads Move resources and table entries from an Aptos style node and prints
// them decoded.
//
//	chainstate resource 0x1 '0x1::coin::CoinInfo<0x1::aptos_coin::AptosCoin>'
//	chainstate table-item 0x5ab... u64 address '"3"'
//	chainstate parse '0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>'
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errColor = color.New(color.FgRed, color.Bold)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chainstate",
		Short:         "Read and decode Move resources from a node",
		Long:          `chainstate loads resources and table entries from an Aptos style REST node and prints them as decoded JSON`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mode, err := cmd.Flags().GetString("color")
			if err != nil {
				return err
			}
			switch mode {
			case "on":
				color.NoColor = false
			case "off":
				color.NoColor = true
			case "auto":
			default:
				return fmt.Errorf("unknown color mode %q, use auto, on or off", mode)
			}
			return nil
		},
	}

	root.AddCommand(newResourceCmd())
	root.AddCommand(newTableItemCmd())
	root.AddCommand(newIterateCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newSchemaCmd())

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a TOML config file")
	flags.String("node", "", "node REST URL (overrides the config file)")
	flags.Duration("timeout", 0, "timeout of a single request")
	flags.StringSlice("schema", nil, "additional TOML schema files")
	flags.Int("retries", 0, "retries of reads that found the node unavailable")
	flags.BoolP("verbose", "v", false, "log remote reads to stderr")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errColor.Fprintf(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
