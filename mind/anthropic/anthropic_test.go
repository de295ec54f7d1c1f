package anthropic

import (
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animakit/anima/mind"
)

func TestBuildMessagesCoercesLeadingAssistantTurn(t *testing.T) {
	mc := &mind.Context{
		Now: time.Now(),
		History: []mind.Message{
			{Role: mind.RoleAssistant, Content: "Oh, you're here early."},
			{Role: mind.RoleUser, Content: "morning"},
		},
	}

	messages := buildMessages(mc)
	require.Len(t, messages, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, messages[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, messages[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, messages[2].Role)
}

func TestBuildMessagesKeepsLeadingUserTurn(t *testing.T) {
	mc := &mind.Context{
		Now: time.Now(),
		History: []mind.Message{
			{Role: mind.RoleUser, Content: "hello"},
			{Role: mind.RoleAssistant, Content: "hi"},
		},
	}

	messages := buildMessages(mc)
	require.Len(t, messages, 2)
	assert.Equal(t, sdk.MessageParamRoleUser, messages[0].Role)
}

func TestBuildMessagesAppendsEphemeralAsUserTurn(t *testing.T) {
	mc := &mind.Context{
		Now:       time.Now(),
		History:   []mind.Message{{Role: mind.RoleUser, Content: "hello"}},
		Ephemeral: "[System]: User has been silent for 42.0 seconds.",
	}

	messages := buildMessages(mc)
	require.Len(t, messages, 2)
	assert.Equal(t, sdk.MessageParamRoleUser, messages[1].Role)
}

func TestStripCodeFence(t *testing.T) {
	fenced := "```json\n{\"thought\": \"x\"}\n```"
	assert.Equal(t, `{"thought": "x"}`, stripCodeFence(fenced))
	assert.Equal(t, `{"thought": "x"}`, stripCodeFence(`{"thought": "x"}`))
}
