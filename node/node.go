// Package node defines the read interface to a remote ledger node. Implementations live in
// subpackages: rest talks to a node's REST API, nodeotel adds tracing and metrics to any Client
// and nodetest is an in-memory node for tests.
package node

import (
	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/context"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/value"
)

// ErrNotFound is returned by a Client when the node has no such resource or table entry.
// Any other error is a transport failure.
var ErrNotFound = errors.New("not found on node")

// Client reads raw state from a node.
type Client interface {
	// Resource returns the data of the resource of type resourceType at addr. resourceType is
	// the canonical type string.
	Resource(ctx context.Context, addr value.Address, resourceType string) (jsontext.Value, error)
	// TableItem returns the value stored under key in the table at handle. keyType and
	// valueType are canonical type strings and key is the key in node JSON.
	TableItem(ctx context.Context, handle value.Address, keyType, valueType string, key jsontext.Value) (jsontext.Value, error)
}
