package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource ADDRESS TYPE",
		Short: "Load and print a resource",
		Long: `Load the resource of TYPE stored at ADDRESS and print it decoded.

With --full every resource the value references is loaded too, recursively.`,
		Example: `  chainstate resource 0x1 '0x1::coin::CoinInfo<0x1::aptos_coin::AptosCoin>'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			full, err := cmd.Flags().GetBool("full")
			if err != nil {
				return err
			}
			return runResource(cmd, args[0], args[1], full)
		},
	}
	cmd.Flags().Bool("full", false, "load referenced resources recursively")
	return cmd
}

func runResource(cmd *cobra.Command, rawAddr, rawType string, full bool) error {
	addr, err := value.ParseAddress(rawAddr)
	if err != nil {
		return err
	}
	tag, err := typetag.ParseStruct(rawType)
	if err != nil {
		return err
	}
	l, err := newLoader(cmd)
	if err != nil {
		return err
	}

	inst, err := l.Load(cmd.Context(), addr, tag)
	if err != nil {
		return err
	}
	if full {
		if inst, err = l.LoadFullState(cmd.Context(), inst); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	printHead(out, "%s at %s", typetag.MustCanonical(tag), addr)
	if err := printValue(out, inst); err != nil {
		return fmt.Errorf("printing %s: %w", tag, err)
	}
	return nil
}
