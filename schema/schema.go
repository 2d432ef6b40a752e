// Package schema holds the static struct declarations chainstate knows about and reads more of
// them from TOML files.
//
// A schema file is a list of [[struct]] tables:
//
//	[[struct]]
//	address = "0x1"
//	module = "coin"
//	name = "CoinStore"
//	resource = true
//	type_params = [{ name = "CoinType", phantom = true }]
//	fields = [
//	  { name = "coin", type = "0x1::coin::Coin<T0>" },
//	]
//
// Field types are written the way the node renders them. T0, T1, ... refer to the struct's
// type parameters in order.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/bearlytools/chainstate/mapping"
	"github.com/bearlytools/chainstate/typetag"
)

//go:embed std.toml aptos.toml econia.toml
var builtin embed.FS

// EconiaAddress is the address the Econia exchange is published at.
const EconiaAddress = "0xb1d4c0de8bc24468608637dfdbff975a0888f8935aa63338a44078eec5c7b6c7"

// Frequently loaded resources.
var (
	Account           = typetag.NewIdent("0x1", "account", "Account")
	CoinStore         = typetag.NewIdent("0x1", "coin", "CoinStore")
	CoinInfo          = typetag.NewIdent("0x1", "coin", "CoinInfo")
	AptosCoin         = typetag.NewIdent("0x1", "aptos_coin", "AptosCoin")
	EconiaRegistry    = typetag.NewIdent(EconiaAddress, "registry", "Registry")
	OrderBook         = typetag.NewIdent(EconiaAddress, "market", "OrderBook")
	MarketAccounts    = typetag.NewIdent(EconiaAddress, "user", "MarketAccounts")
	Collateral        = typetag.NewIdent(EconiaAddress, "user", "Collateral")
	MarketAccount     = typetag.NewIdent(EconiaAddress, "user", "MarketAccount")
	MarketAccountInfo = typetag.NewIdent(EconiaAddress, "user", "MarketAccountInfo")
)

// scaleExponents is the number of registry::E<n> marker types.
const scaleExponents = 20

// File is the TOML layout of a schema file.
type File struct {
	Structs []Struct `toml:"struct"`
}

// Struct is a struct declaration in a schema file.
type Struct struct {
	Address    string      `toml:"address"`
	Module     string      `toml:"module"`
	Name       string      `toml:"name"`
	Resource   bool        `toml:"resource"`
	TypeParams []TypeParam `toml:"type_params"`
	Fields     []Field     `toml:"fields"`
}

// TypeParam is a type parameter in a schema file.
type TypeParam struct {
	Name    string `toml:"name"`
	Phantom bool   `toml:"phantom"`
}

// Field is a field in a schema file. Type is a type tag string.
type Field struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// Default returns the built in declarations: the Move standard library, the Aptos framework
// and the Econia exchange. Each call returns new Maps.
func Default() []*mapping.Map {
	var maps []*mapping.Map
	for _, name := range []string{"std.toml", "aptos.toml", "econia.toml"} {
		b, err := builtin.ReadFile(name)
		if err != nil {
			panic(err)
		}
		m, err := Parse(b)
		if err != nil {
			panic(errors.Wrapf(err, "built in schema %s", name))
		}
		maps = append(maps, m...)
	}

	// registry::E0 to E19 select a market's scale factor. They have no fields.
	for i := range scaleExponents {
		maps = append(maps, &mapping.Map{Ident: typetag.NewIdent(EconiaAddress, "registry", fmt.Sprintf("E%d", i))})
	}
	return maps
}

// LoadFile reads the declarations in the schema file at path.
func LoadFile(path string) ([]*mapping.Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema file %s", path)
	}
	maps, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "schema file %s", path)
	}
	return maps, nil
}

// Parse reads the declarations in a schema file. Unknown keys are an error so that a misspelt
// key does not silently drop a field.
func Parse(b []byte) ([]*mapping.Map, error) {
	var f File
	meta, err := toml.NewDecoder(bytes.NewReader(b)).Decode(&f)
	if err != nil {
		return nil, errors.Wrap(err, "parsing TOML")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	maps := make([]*mapping.Map, 0, len(f.Structs))
	for i, s := range f.Structs {
		m, err := s.Map()
		if err != nil {
			return nil, errors.Wrapf(err, "struct %d (%s)", i, s.Name)
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// Map converts s to a validated declaration.
func (s Struct) Map() (*mapping.Map, error) {
	addr, err := typetag.NormalizeAddress(s.Address)
	if err != nil {
		return nil, err
	}
	m := &mapping.Map{
		Ident:    typetag.Ident{Address: addr, Module: s.Module, Name: s.Name},
		Resource: s.Resource,
	}
	for _, tp := range s.TypeParams {
		m.TypeParams = append(m.TypeParams, mapping.TypeParam{Name: tp.Name, Phantom: tp.Phantom})
	}
	for _, f := range s.Fields {
		t, err := typetag.Parse(f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		m.Fields = append(m.Fields, &mapping.FieldDescr{Name: f.Name, Type: t})
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
