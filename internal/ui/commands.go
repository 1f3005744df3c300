package ui

import (
	"strings"
)

type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandQuit
	CommandConnect
	CommandDisconnect
	CommandToken
	CommandRefresh
	CommandOrgs
	CommandLogs
	CommandHelp
)

type Command struct {
	Type CommandType
	Args []string
}

func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)

	if !strings.HasPrefix(input, ":") {
		return Command{Type: CommandUnknown}
	}

	input = strings.TrimPrefix(input, ":")
	parts := strings.Fields(input)

	if len(parts) == 0 {
		return Command{Type: CommandUnknown}
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "q", "quit":
		return Command{Type: CommandQuit, Args: args}
	case "c", "connect":
		return Command{Type: CommandConnect, Args: args}
	case "disconnect":
		return Command{Type: CommandDisconnect, Args: args}
	case "t", "token":
		return Command{Type: CommandToken, Args: args}
	case "r", "refresh":
		return Command{Type: CommandRefresh, Args: args}
	case "o", "orgs":
		return Command{Type: CommandOrgs, Args: args}
	case "l", "logs":
		return Command{Type: CommandLogs, Args: args}
	case "h", "help":
		return Command{Type: CommandHelp, Args: args}
	default:
		return Command{Type: CommandUnknown, Args: args}
	}
}
