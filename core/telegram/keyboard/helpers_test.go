package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsOnePerRow(t *testing.T) {
	btns := []InlineBtn{{Text: "Road Trip", Data: "select_playlist:1"}, {Text: "Gym", Data: "select_playlist:2"}}
	markup := InlineButtons(btns)

	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "select_playlist:1", markup.InlineKeyboard[0][0].Data)
	assert.Empty(t, markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, btns, Flatten(markup))
}

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := make([]InlineBtn, 5)
	markup := InlineButtonsNPerRow(btns, 2)

	require.Len(t, markup.InlineKeyboard, 3)
	assert.Len(t, markup.InlineKeyboard[2], 1)
	assert.Len(t, Flatten(markup), 5)
	assert.Nil(t, Flatten(nil))
}
