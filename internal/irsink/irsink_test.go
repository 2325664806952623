package irsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullSink_RecordsEmittedSymbols(t *testing.T) {
	sink := &NullSink{}

	sink.EmitFunction("foo_fast", nil)
	sink.EmitExtern("bar", "libm", nil)

	assert.Equal(t, []string{"foo_fast", "bar"}, sink.Emitted)
}
