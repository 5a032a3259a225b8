package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToYandexMessagesRenamesModelRole(t *testing.T) {
	out := toYandexMessages([]Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleModel, Content: "m"},
	})
	assert.Len(t, out, 3)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[2].Role)
	assert.Equal(t, "m", out[2].Content)
}
