package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJavaParser(t *testing.T) {
	parser, err := NewJavaParser()
	require.NoError(t, err)
	assert.NotNil(t, parser)
	assert.Equal(t, "Java", parser.Language())
	assert.Equal(t, []string{".java"}, parser.SupportedExtensions())
}

func TestJavaParser_ParseSpans(t *testing.T) {
	parser, err := NewJavaParser()
	require.NoError(t, err)

	javaCode := []byte(`package com.example;

public class Calc {
    public Calc() {
    }

    public int add(int a, int b) {
        return a + b;
    }

    class Inner {
        void hidden() {}
    }
}
`)

	spans, err := parser.ParseSpans("Calc.java", javaCode)
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, "Calc", spans[0].Name)
	assert.Equal(t, 4, spans[0].StartLine)
	assert.Equal(t, 5, spans[0].EndLine)

	assert.Equal(t, "add", spans[1].Name)
	assert.Equal(t, 7, spans[1].StartLine)
	assert.Equal(t, 9, spans[1].EndLine)
}
