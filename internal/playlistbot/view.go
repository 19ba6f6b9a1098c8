package playlistbot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	"github.com/m3rciful/playlistbot/core/telegram/keyboard"
	"github.com/m3rciful/playlistbot/internal/models"
)

// Command names accepted by the bot.
const (
	CmdStart          = "/start"
	CmdMyPlaylists    = "/myplaylists"
	CmdCreatePlaylist = "/createplaylist"
	CmdHelp           = "/help"
)

const (
	textNoID              = "No id"
	textGreeting          = "Hi! Send me an audio file and I will add it to your playlist."
	textNoPlaylists       = "You have no playlists. Want to create a new one?"
	textYourPlaylists     = "Your playlists:"
	textAskPlaylistName   = "Enter a name for the new playlist:"
	textRepromptName      = "Please enter a playlist name."
	textPlaylistCreated   = "Playlist %q created."
	textNoPendingAction   = "There is no pending action for this message. Use /help to see the commands."
	textChoosePlaylist    = "Choose a playlist:"
	textNoUploadTargets   = "You have no playlists yet. Create one with /createplaylist and send the audio again."
	textSendAudioFirst    = "Send an audio file first."
	textItemAdded         = "Audio file added to the playlist."
	textNoItems           = "There are no audio files in this playlist."
	textChooseSong        = "Choose a song to play:"
	textHereIsYourSong    = "Here is your song"
	textInvalidSelection  = "Invalid song selection."
	textSelectPlaylist    = "Pick a playlist with /myplaylists first."
	textUnknownCommand    = "Unknown command. Use /help to see the commands."
	textSomethingWrong    = "Something went wrong, please try again."
	textNameTooLong       = "Playlist name is too long, the limit is %d characters."
	textNameTaken         = "You already have a playlist with this name."
	textNotYourPlaylist   = "This playlist is not available."
	textRateLimited       = "Too many requests, please slow down."
	textRateLimitedAnswer = "Slow down"
)

// CommandInfo describes one command for the help text and the client menu.
type CommandInfo struct {
	Name        string
	Description string
}

// Commands lists the bot commands in the order they are shown.
var Commands = []CommandInfo{
	{CmdStart, "Start using the bot"},
	{CmdMyPlaylists, "Listen to a song from a playlist"},
	{CmdCreatePlaylist, "Create a playlist"},
	{CmdHelp, "Show the available commands"},
}

// HelpLines returns one "<command> - <description>" line per command.
func HelpLines() []string {
	lines := make([]string, 0, len(Commands))
	for _, c := range Commands {
		lines = append(lines, c.Name+" - "+c.Description)
	}
	return lines
}

func textReply(text string) Reply {
	return Reply{Text: text}
}

func helpReply() Reply {
	return textReply(strings.Join(HelpLines(), "\n"))
}

func createdReply(name string) Reply {
	return textReply(fmt.Sprintf(textPlaylistCreated, name))
}

// playlistRows renders one button per playlist, one per row, tagged with verb and playlist id.
func playlistRows(verb callbacks.Verb, playlists []models.Playlist) [][]keyboard.InlineBtn {
	rows := make([][]keyboard.InlineBtn, 0, len(playlists))
	for _, p := range playlists {
		rows = append(rows, []keyboard.InlineBtn{{
			Text: p.Name,
			Data: callbacks.MustEncode(verb, p.ID),
		}})
	}
	return rows
}

// songRows labels items "Song 1".."Song n" by their 1-based position.
func songRows(items []models.PlaylistItem) [][]keyboard.InlineBtn {
	rows := make([][]keyboard.InlineBtn, 0, len(items))
	for i := range items {
		n := int64(i + 1)
		rows = append(rows, []keyboard.InlineBtn{{
			Text: fmt.Sprintf("Song %d", n),
			Data: callbacks.MustEncode(callbacks.PlaySong, n),
		}})
	}
	return rows
}
