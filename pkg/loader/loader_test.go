package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/dsl"
	"github.com/aretw0/flowfsm/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersYAML = `
name: orders
description: Order lifecycle
start: NEW
defaults:
  - on: cancel
    finish: CANCELLED
subgraphs:
  payment:
    start: PAYING
    defaults:
      - on: cancel
        finish: CANCELLED
    transitions:
      - on: paid
        to: SHIPPING
        transit:
          - emit: shipped
transitions:
  - on: confirm
    subgraph: payment
    transit:
      - on: shipped
        to: DELIVERING
        transit:
          - on: delivered, lost
            finish: DONE
`

func ordersDSL() *dsl.Definition {
	payment := dsl.NewSubGraph("PAYING", dsl.On("cancel").Finish("CANCELLED")).Transit(
		dsl.On("paid").To("SHIPPING").Transit(dsl.Emit("shipped")),
	)
	return dsl.NewFlow("NEW", dsl.On("cancel").Finish("CANCELLED")).Transit(
		dsl.On("confirm").SubGraph(payment).Transit(
			dsl.On("shipped").To("DELIVERING").Transit(
				dsl.On("delivered", "lost").Finish("DONE"),
			),
		),
	)
}

func TestParse_YAML(t *testing.T) {
	doc, err := loader.Parse([]byte(ordersYAML), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "orders", doc.Name)
	assert.Equal(t, "Order lifecycle", doc.Description)
	assert.Equal(t, []string{"delivered", "lost"}, doc.Transitions[0].Transit[0].Transit[0].On)

	def, err := doc.Definition()
	require.NoError(t, err)
	got, err := def.Assemble()
	require.NoError(t, err)

	want, err := ordersDSL().Assemble()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = def.Build(false)
	assert.NoError(t, err)
}

func TestParse_JSON(t *testing.T) {
	data := `{
		"start": "A",
		"transitions": [
			{"on": ["go", "run"], "to": "B", "transit": [
				{"on": "stop", "finish": "C"},
				{"on": "again", "back_to": "A"}
			]}
		]
	}`
	doc, err := loader.Parse([]byte(data), "json")
	require.NoError(t, err)

	def, err := doc.Definition()
	require.NoError(t, err)
	c, err := def.Build(false)
	require.NoError(t, err)

	assert.Equal(t, domain.State("A"), def.Start())
	assert.True(t, c.Handles("A", "run"))
	assert.True(t, c.Handles("B", "again"))
	assert.True(t, c.IsFinal("C"))
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"Missing start":        "transitions: []",
		"Unknown field":        "start: A\ntransitions:\n  - on: go\n    goto: B\n",
		"Two destinations":     "start: A\ntransitions:\n  - on: go\n    to: B\n    finish: C\n",
		"No destination":       "start: A\ntransitions:\n  - on: go\n",
		"Missing on":           "start: A\ntransitions:\n  - to: B\n",
		"Emit with transit":    "start: A\ntransitions:\n  - emit: x\n    transit:\n      - on: y\n        finish: Z\n",
		"Unknown subgraph":     "start: A\ntransitions:\n  - on: go\n    subgraph: nope\n",
		"Subgraph embeds self": "start: A\nsubgraphs:\n  loop:\n    start: L\n    transitions:\n      - on: again\n        subgraph: loop\ntransitions:\n  - on: go\n    subgraph: loop\n",
		"Subgraph no start":    "start: A\nsubgraphs:\n  s:\n    transitions: []\ntransitions:\n  - on: go\n    subgraph: s\n",
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := loader.Parse([]byte(data), "yaml")
			if err == nil {
				_, err = doc.Definition()
			}
			assert.ErrorIs(t, err, loader.ErrInvalidDocument)
		})
	}

	_, err := loader.Parse([]byte("start: A"), "toml")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersYAML), 0o644))
	doc, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "orders", doc.Name)

	jsonPath := filepath.Join(dir, "tiny.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"start":"A","transitions":[{"on":"go","finish":"B"}]}`), 0o644))
	doc, err = loader.LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "tiny", doc.Name, "name defaults to the file name")

	_, err = loader.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
