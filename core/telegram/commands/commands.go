package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	// Aliases also match plain text, so a menu label routes like the command.
	Aliases []string
}

// Menu declares a command shown in the bot command menu.
func Menu(description string, h tele.HandlerFunc, aliases ...string) Command {
	return Command{Handler: h, Description: description, Aliases: aliases}
}

// Admin declares a hidden command that only admins may run.
func Admin(description string, h tele.HandlerFunc) Command {
	return Command{Handler: h, Description: description, AdminOnly: true, Hidden: true}
}

// Other declares a routable command that is not listed in the menu.
func Other(description string, h tele.HandlerFunc) Command {
	return Command{Handler: h, Description: description, Hidden: true}
}
