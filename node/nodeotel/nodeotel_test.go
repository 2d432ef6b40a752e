package nodeotel

import (
	"testing"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/node/nodetest"
	"github.com/bearlytools/chainstate/value"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.EnableTracing || !cfg.EnableMetrics || !cfg.RecordPayloadSize {
		t.Errorf("[TestDefaultConfig]: got %+v, want everything enabled", cfg)
	}
	if cfg.MeterProvider != nil {
		t.Errorf("[TestDefaultConfig]: MeterProvider = %v, want nil", cfg.MeterProvider)
	}
}

func TestClient(t *testing.T) {
	ctx := t.Context()
	addr := value.MustAddress("0x1")

	fake := nodetest.New()
	fake.SetResource(addr, "0x1::account::Account", `{"sequence_number":"3"}`)
	if err := fake.SetTableItem(addr, "u64", "bool", `"1"`, `true`); err != nil {
		t.Fatalf("[TestClient]: SetTableItem: %s", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "Success: default config", cfg: DefaultConfig()},
		{name: "Success: metrics disabled", cfg: Config{EnableTracing: true}},
		{name: "Success: tracing disabled", cfg: Config{EnableMetrics: true}},
	}

	for _, test := range tests {
		c, err := New(ctx, fake, test.cfg)
		if err != nil {
			t.Fatalf("[TestClient](%s): New: %s", test.name, err)
		}

		got, err := c.Resource(ctx, addr, "0x1::account::Account")
		if err != nil {
			t.Errorf("[TestClient](%s): Resource: got err == %s", test.name, err)
		} else if string(got) != `{"sequence_number":"3"}` {
			t.Errorf("[TestClient](%s): Resource: got %s", test.name, got)
		}

		_, err = c.Resource(ctx, addr, "0x1::coin::CoinInfo")
		if !errors.Is(err, node.ErrNotFound) {
			t.Errorf("[TestClient](%s): missing resource: got %v, want node.ErrNotFound", test.name, err)
		}

		got, err = c.TableItem(ctx, addr, "u64", "bool", jsontext.Value(`"1"`))
		if err != nil || string(got) != "true" {
			t.Errorf("[TestClient](%s): TableItem: got %s, %v", test.name, got, err)
		}
	}

	fake.FailWith(errors.ErrNodeUnavailable)
	c, err := New(ctx, fake, DefaultConfig())
	if err != nil {
		t.Fatalf("[TestClient]: New: %s", err)
	}
	if _, err := c.Resource(ctx, addr, "0x1::account::Account"); !errors.IsRetryable(err) {
		t.Errorf("[TestClient]: failing node: got %v, want retryable", err)
	}
}

func TestNewNilClient(t *testing.T) {
	if _, err := New(t.Context(), nil, DefaultConfig()); err == nil {
		t.Errorf("[TestNewNilClient]: got err == nil, want err != nil")
	}
}
