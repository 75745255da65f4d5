package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("list folder: %w", fmt.Errorf("%w: folder missing", ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsPermission(err))
	assert.False(t, IsRateLimit(err))

	assert.True(t, IsRateLimit(fmt.Errorf("%w: upstream 429", ErrRateLimit)))
	assert.True(t, IsPermission(fmt.Errorf("%w: forbidden", ErrPermission)))
}

func TestRemediation(t *testing.T) {
	for _, sentinel := range []error{
		ErrNotFound, ErrPermission, ErrIndexNotBuilt, ErrIndexBusy,
		ErrRateLimit, ErrEmbedding, ErrGeneration,
	} {
		wrapped := fmt.Errorf("operation failed: %w", sentinel)
		assert.NotEmpty(t, Remediation(wrapped), "sentinel %v", sentinel)
	}

	assert.Empty(t, Remediation(errors.New("unclassified")))
	assert.Empty(t, Remediation(nil))
}

func TestChunkValidate(t *testing.T) {
	valid := Chunk{
		DocumentID:  "doc",
		Index:       0,
		Text:        "héllo wörld",
		StartOffset: 10,
		EndOffset:   21,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Chunk)
	}{
		{"empty text", func(c *Chunk) { c.Text = "" }},
		{"missing document", func(c *Chunk) { c.DocumentID = "" }},
		{"negative index", func(c *Chunk) { c.Index = -1 }},
		{"negative start", func(c *Chunk) { c.StartOffset = -1 }},
		{"end before start", func(c *Chunk) { c.EndOffset = 5 }},
		{"offsets disagree with text", func(c *Chunk) { c.EndOffset = 30 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
