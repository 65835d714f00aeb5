package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythonParser_ParseSpans(t *testing.T) {
	parser, err := NewPythonParser()
	require.NoError(t, err)

	src := []byte(`import os

def top():
    def inner():
        pass
    return inner

class K:
    def method(self):
        pass

@decorator
def wrapped():
    pass

async def fetch():
    pass
`)

	spans, err := parser.ParseSpans("mod.py", src)
	require.NoError(t, err)

	var names []string
	for _, s := range spans {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"top", "wrapped", "fetch"}, names)

	assert.Equal(t, 3, spans[0].StartLine)
	assert.Equal(t, 6, spans[0].EndLine)
	assert.Equal(t, 12, spans[1].StartLine, "decorated span starts at the decorator")
	assert.Equal(t, 14, spans[1].EndLine)
}
