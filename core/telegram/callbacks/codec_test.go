package callbacks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	for _, v := range Verbs() {
		data, err := Encode(v, 42)
		require.NoError(t, err)
		assert.Equal(t, string(v)+":42", data)

		p, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, Payload{Verb: v, Arg: 42}, p)
	}
}

func TestEncodeRejects(t *testing.T) {
	_, err := Encode("delete_playlist", 1)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Encode(PlaySong, 0)
	assert.ErrorIs(t, err, ErrMalformed)

	assert.Panics(t, func() { MustEncode(PlaySong, -1) })
}

func TestDecodeRejects(t *testing.T) {
	cases := []string{
		"",
		"play_song",
		"play_song:",
		"play_song:0",
		"play_song:-1",
		"play_song:+1",
		"play_song:1.5",
		"play_song:1:2",
		"play_song: 1",
		"play_song:99999999999999999999",
		"skip_song:1",
		"\fplay_song|1",
	}
	for _, data := range cases {
		t.Run(data, func(t *testing.T) {
			_, err := Decode(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncodeWithinTelegramLimit(t *testing.T) {
	data, err := Encode(AddToPlaylist, 1<<62)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), MaxDataLen)
	assert.True(t, strings.HasPrefix(data, "add_to_playlist:"))
}

func TestVerbOf(t *testing.T) {
	assert.Equal(t, SelectPlaylist, VerbOf("select_playlist:9"))
	assert.Equal(t, Verb("garbage"), VerbOf("garbage"))
	assert.False(t, VerbOf("garbage").Valid())
}
