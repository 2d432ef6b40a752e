package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bearlytools/chainstate/typetag"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse TYPE",
		Short:   "Parse a type tag and print its canonical form",
		Example: `  chainstate parse '0x01::coin::CoinStore< 0x1::aptos_coin::AptosCoin >'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := typetag.Parse(args[0])
			if err != nil {
				return err
			}
			s, err := typetag.Canonical(tag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List the known struct declarations",
		Long:  `List the built in struct declarations and those of the configured schema files.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, err := cmd.Flags().GetBool("resources")
			if err != nil {
				return err
			}
			cfg, err := config(cmd)
			if err != nil {
				return err
			}
			reg, err := registry(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			n := 0
			for _, m := range reg.Declarations().All() {
				if resources && !m.Resource {
					continue
				}
				fmt.Fprintln(out, m.String())
				n++
			}
			printHead(out, "%d declarations", n)
			return nil
		},
	}
	cmd.Flags().Bool("resources", false, "only list declarations that are resources")
	return cmd
}
