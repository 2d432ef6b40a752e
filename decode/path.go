package decode

import (
	"strconv"
	"strings"
)

// PathError is a decode error at a location inside a value, such as "MarketAccount.asks.root"
// or "outer_nodes[3].value".
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func atField(err error, name string) error {
	return at(err, name)
}

func atIndex(err error, i int) error {
	return at(err, "["+strconv.Itoa(i)+"]")
}

// at prefixes the path of err with elem.
func at(err error, elem string) error {
	pe, ok := err.(*PathError)
	if !ok {
		return &PathError{Path: elem, Err: err}
	}
	if strings.HasPrefix(pe.Path, "[") {
		return &PathError{Path: elem + pe.Path, Err: pe.Err}
	}
	return &PathError{Path: elem + "." + pe.Path, Err: pe.Err}
}
