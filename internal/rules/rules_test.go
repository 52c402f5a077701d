package rules

import (
	"testing"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ClausePattern_Wants(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("If a customer wants to cancel their subscription, escalate to a human")
	require.NoError(t, err)

	assert.Equal(t, []string{"cancel", "subscription"}, rule.Keywords)
	assert.Equal(t, domain.ActionEscalate, rule.Action.Type)
	assert.True(t, rule.Active)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "If a customer wants to cancel their subscription, escalate to a human", rule.Prompt)
}

func TestParse_ClausePattern_When(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("When a customer mentions damaged items, escalate immediately")
	require.NoError(t, err)

	assert.Contains(t, rule.Keywords, "damaged")
	assert.Equal(t, domain.ActionEscalate, rule.Action.Type)
}

func TestParse_ClausePattern_ForRequests(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("For wholesale pricing requests, route to the general handler")
	require.NoError(t, err)

	assert.Equal(t, []string{"wholesale", "pricing"}, rule.Keywords)
	assert.Equal(t, domain.ActionRedirect, rule.Action.Type)
	assert.Equal(t, domain.HandlerID("general"), rule.Action.Target)
}

func TestParse_FallbackTokenizer(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("Block all refund requests over $500")
	require.NoError(t, err)

	assert.Equal(t, []string{"refund"}, rule.Keywords)
	assert.Equal(t, domain.ActionBlock, rule.Action.Type)
}

func TestParse_FallbackKeepsAtMostThree(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("priority handling needed: wholesale bulk international expedited shipments")
	require.NoError(t, err)
	assert.Len(t, rule.Keywords, 3)
}

func TestParse_BlockOverridesEscalate(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("Do not escalate discount questions")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBlock, rule.Action.Type)
}

func TestParse_MarkTag(t *testing.T) {
	p := NewHeuristicParser()
	rule, err := p.Parse("When a customer mentions influencer collaborations, mark as 'marketing_lead'")
	require.NoError(t, err)
	assert.Equal(t, "MARKETING_LEAD", rule.Action.Tag)
	assert.Equal(t, domain.ActionModifyResponse, rule.Action.Type)
}

func TestParse_NoKeywords(t *testing.T) {
	p := NewHeuristicParser()
	_, err := p.Parse("do not be the all")
	assert.ErrorIs(t, err, ErrNoKeywords)
}

func TestStore_Add_RejectsUnparseable(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.Add("the a an to")
	assert.ErrorIs(t, err, ErrNoKeywords)
	assert.Empty(t, s.List(), "nothing stored on rejection")
}

func TestStore_CheckMessage_FirstMatchWins(t *testing.T) {
	s := NewMemoryStore(nil)

	r1, err := s.Add("When a customer mentions their address, escalate")
	require.NoError(t, err)
	require.Equal(t, []string{"mentions", "address"}, r1.Keywords)

	_, err = s.Add("When a customer asks to update address details, escalate")
	require.NoError(t, err)

	got := s.CheckMessage("update my address")
	require.NotNil(t, got)
	assert.Equal(t, r1.ID, got.ID, "first rule whose keyword set intersects wins")
}

func TestStore_CheckMessage_CaseInsensitive(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.Add("Block all refund requests over $500")
	require.NoError(t, err)

	assert.NotNil(t, s.CheckMessage("I want a REFUND"))
}

func TestStore_CheckMessage_NoMatch(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.Add("Block all refund requests over $500")
	require.NoError(t, err)

	assert.Nil(t, s.CheckMessage("where is my order"))
}

func TestStore_Deactivate(t *testing.T) {
	s := NewMemoryStore(nil)
	rule, err := s.Add("Block all refund requests over $500")
	require.NoError(t, err)

	require.NoError(t, s.Deactivate(rule.ID))
	assert.Nil(t, s.CheckMessage("refund please"), "inactive rules never match")

	list := s.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].Active, "deactivated rules stay listed for audit")
}

func TestStore_Deactivate_NotFound(t *testing.T) {
	s := NewMemoryStore(nil)
	assert.ErrorIs(t, s.Deactivate("nope"), ErrRuleNotFound)
}

func TestStore_Clear(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.Add("Block all refund requests over $500")
	require.NoError(t, err)

	s.Clear()
	assert.Empty(t, s.List())
}
