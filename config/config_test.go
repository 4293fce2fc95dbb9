package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsWellFormedDescription(t *testing.T) {
	data := []byte(`{
		"reader": "ascii",
		"source": "/var/log/conn.log",
		"want_record": true,
		"idx": [{"name": "host", "kind": "addr"}],
		"val": [
			{"name": "count", "kind": "count"},
			{"name": "tags", "kind": "set", "inner_kind": "string"}
		]
	}`)

	cfg, err := Validate(data)
	require.NoError(t, err)
	require.Equal(t, "ascii", cfg.Reader)
	require.Equal(t, "/var/log/conn.log", cfg.Source)
	require.True(t, cfg.WantRecord)
	require.Len(t, cfg.Idx, 1)
	require.Len(t, cfg.Val, 2)
	require.Equal(t, "string", cfg.Val[1].InnerKind)
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	data := []byte(`{
		"reader": "ascii",
		"idx": [{"name": "host", "kind": "addr"}],
		"val": [{"name": "count", "kind": "count"}]
	}`)

	_, err := Validate(data)
	require.Error(t, err)
}

func TestValidate_RejectsUnknownFieldKind(t *testing.T) {
	data := []byte(`{
		"reader": "ascii",
		"source": "x",
		"idx": [{"name": "host", "kind": "bogus"}],
		"val": [{"name": "count", "kind": "count"}]
	}`)

	_, err := Validate(data)
	require.Error(t, err)
}

func TestValidate_RejectsEmptyIdxList(t *testing.T) {
	data := []byte(`{
		"reader": "ascii",
		"source": "x",
		"idx": [],
		"val": [{"name": "count", "kind": "count"}]
	}`)

	_, err := Validate(data)
	require.Error(t, err)
}

func TestValidate_RejectsMalformedJSON(t *testing.T) {
	_, err := Validate([]byte(`{not json`))
	require.Error(t, err)
}
