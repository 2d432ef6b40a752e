package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/bearlytools/chainstate/loader"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

func newTableItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table-item HANDLE KEY_TYPE VALUE_TYPE KEY",
		Short: "Load and print one table entry",
		Long: `Load the entry of table HANDLE stored under KEY and print it decoded as VALUE_TYPE.

KEY is the key as node JSON, so u64 keys are quoted: '"3"'.`,
		Example: `  chainstate table-item 0x5ab u64 address '"3"'`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableItem(cmd, args[0], args[1], args[2], args[3])
		},
	}
}

func runTableItem(cmd *cobra.Command, rawHandle, rawKeyType, rawValueType, rawKey string) error {
	handle, err := value.ParseAddress(rawHandle)
	if err != nil {
		return err
	}
	keyType, err := typetag.Parse(rawKeyType)
	if err != nil {
		return fmt.Errorf("key type: %w", err)
	}
	valueType, err := typetag.Parse(rawValueType)
	if err != nil {
		return fmt.Errorf("value type: %w", err)
	}
	key := jsontext.Value(rawKey)
	if !key.IsValid() {
		return fmt.Errorf("key %q is not valid JSON", rawKey)
	}
	l, err := newLoader(cmd)
	if err != nil {
		return err
	}

	v, err := l.GetTableItem(cmd.Context(), handle, keyType, valueType, key)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printHead(out, "%s[%s]", handle, rawKey)
	return printValue(out, v)
}

func newIterateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "iterate ADDRESS TYPE FIELD",
		Short: "Print every entry of an iterable table inside a resource",
		Long: `Load the resource of TYPE at ADDRESS, follow the dotted FIELD path to a
0x1::iterable_table::IterableTable and print its entries from head to tail.`,
		Example: `  chainstate iterate 0xb1d4c0de... '0xb1d4c0de...::registry::Registry' markets`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIterate(cmd, args[0], args[1], args[2])
		},
	}
}

func runIterate(cmd *cobra.Command, rawAddr, rawType, path string) error {
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
	tbl, err := follow(inst, path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	n := 0
	for e, err := range l.IterableTable(cmd.Context(), tbl) {
		if err != nil {
			return err
		}
		if err := printEntry(out, n, e); err != nil {
			return err
		}
		n++
	}
	printHead(out, "%d entries", n)
	return nil
}

func printEntry(w io.Writer, n int, e loader.Entry) error {
	printHead(w, "#%d key", n)
	if err := printValue(w, e.Key); err != nil {
		return err
	}
	printHead(w, "#%d value", n)
	return printValue(w, e.Value)
}

// follow walks the dotted field path from inst. Every step must be a struct.
func follow(inst *value.Instance, path string) (*value.Instance, error) {
	cur := inst
	for _, name := range strings.Split(path, ".") {
		v, ok := cur.Get(name)
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", cur.Type, name)
		}
		next, ok := v.(*value.Instance)
		if !ok {
			return nil, fmt.Errorf("%s.%s is %T, not a struct", cur.Type, name, v)
		}
		cur = next
	}
	return cur, nil
}
