// Package state provides an in-memory, per-user session store for Telegram bots.
// It is domain-agnostic: the session type is supplied by the bot.
package state
