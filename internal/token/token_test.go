package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken_String(t *testing.T) {
	tok := Token{File: "a.pythoc", Line: 3, Column: 7}
	assert.Equal(t, "a.pythoc:3:7", tok.String())
}

func TestToken_IsZero(t *testing.T) {
	assert.True(t, Token{}.IsZero())
	assert.False(t, Token{Line: 1}.IsZero())
}

func TestProvenance_AppendLeavesReceiverUntouched(t *testing.T) {
	origin := Provenance{Origin: Token{File: "a.pythoc", Line: 1}}

	withOneLink := origin.Append(ProvenanceLink{InlineID: 1, Callee: "f"})
	withTwoLinks := withOneLink.Append(ProvenanceLink{InlineID: 2, Callee: "g"})

	assert.Empty(t, origin.Chain, "Append must not mutate the receiver's chain")
	assert.Len(t, withOneLink.Chain, 1, "a separately-built chain must not observe a later Append on a different value")
	assert.Len(t, withTwoLinks.Chain, 2)
	assert.Equal(t, "f", withTwoLinks.Chain[0].Callee)
	assert.Equal(t, "g", withTwoLinks.Chain[1].Callee)
}

func TestProvenance_Innermost(t *testing.T) {
	p := Provenance{Origin: Token{File: "a.pythoc", Line: 1}}
	p = p.Append(ProvenanceLink{Callee: "f"})

	assert.Equal(t, Token{File: "a.pythoc", Line: 1}, p.Innermost(), "Innermost is always the original source token, regardless of chain depth")
}
