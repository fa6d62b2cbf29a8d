package keymap

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name string
		msg  tea.KeyMsg
		want bool
	}{
		{"enter opens", tea.KeyMsg{Type: tea.KeyEnter}, true},
		{"l opens", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")}, true},
		{"right opens", tea.KeyMsg{Type: tea.KeyRight}, true},
		{"x does not open", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.msg, km.Open))
		})
	}
}

func TestDefaultKeyMap_Back(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches(tea.KeyMsg{Type: tea.KeyEsc}, km.Back))
	assert.True(t, Matches(tea.KeyMsg{Type: tea.KeyBackspace}, km.Back))
	assert.False(t, Matches(tea.KeyMsg{Type: tea.KeyEnter}, km.Back))
}

func TestHelpLine(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, "[enter] open  [q] quit", HelpLine(km.Open, km.Quit))
	assert.Empty(t, HelpLine())
}
