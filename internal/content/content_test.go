package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Len(t, c.Resources.Sections, 3)
	assert.True(t, c.Resources.Sections[0].Urgent)
	assert.Contains(t, c.Resources.Sections[0].Items[0].Description, "1800-599-0019")
	assert.Equal(t, "Visit NAMI.org", c.Resources.Sections[2].Items[1].LinkLabel())
	assert.Equal(t, "Learn more", c.Resources.Sections[1].Items[0].LinkLabel())
	assert.Equal(t, []string{
		"I'm feeling anxious about something.",
		"Can we do a short breathing exercise?",
		"I had a really stressful day.",
		"I want to talk about my feelings.",
	}, c.Suggestions.Prompts)
	assert.Len(t, c.About.Mission, 2)
	assert.Equal(t, "Saved!", c.Journal.Saved)
	assert.Equal(t, "MindMate is a supportive AI companion, not a replacement for professional medical advice.", c.Footer)
}

func TestLoadOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
resources:
  sections:
    - title: Local help
      items:
        - title: Call a friend
          description: Reach out.
footer: custom footer
`), 0o600))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Local help", c.Resources.Sections[0].Title)
	assert.Equal(t, "custom footer", c.Footer)

	d, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), d)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("resources: ["))
	assert.Error(t, err)
	_, err = Parse([]byte("footer: only"))
	assert.Error(t, err)
}
