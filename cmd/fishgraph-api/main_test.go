package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "ask", "search", "node", "stats"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	search, _, err := root.Find([]string{"search"})
	require.NoError(t, err)
	assert.NotNil(t, search.Flags().Lookup("type"))
}

func TestArgValidation(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	root.SetArgs([]string{"node"})
	assert.Error(t, root.Execute())

	root.SetArgs([]string{"stats", "extra"})
	assert.Error(t, root.Execute())
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, model.GraphStats{Labels: map[string]int64{"Fish": 2}}))
	assert.Contains(t, buf.String(), "\"Fish\": 2")
}
