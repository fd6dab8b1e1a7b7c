package resource

import "github.com/enescakir/emoji"

const (
	CmdStart      = "/start"
	CmdHelp       = "/help"
	CmdStatus     = "/status"
	CmdFill       = "/fill"
	CmdClear      = "/clear"
	CmdSetSlots   = "/setslots"
	CmdSetEnabled = "/setenabled"
	CmdRestart    = "/restart"
)

const (
	// status argument switching to the per-bot table
	ArgDetailed = "detailed"
	// setenabled bot name selecting every bot of a server
	ArgAll = "all"
)

var (
	TextHelpMsg = emoji.Robot.String() + " I keep bots populating game servers.\n\n" +
		"Commands:\n" +
		CmdStatus + " [server] [detailed] - show server status\n" +
		CmdFill + " [server] - let bots fill all configured slots\n" +
		CmdClear + " [server] - make all bots leave\n" +
		CmdSetSlots + " <server> <slots> - temporarily change the number of slots to fill\n" +
		CmdSetEnabled + " <server> <bot|all> <true|false> - enable or disable a bot\n" +
		CmdRestart + " <server> <bot> - make an in-game bot leave and rejoin"

	TextNotAdmin         = emoji.CrossMark.String() + " This command requires administrator rights."
	TextUnknownCommand   = "Unknown command, try " + CmdHelp + "."
	TextNoServers        = "No servers are set up."
	TextLaunchIncomplete = emoji.Stopwatch.String() + " Not all bots have been launched yet. " +
		"Please wait until bot launch is complete before changing server settings."
	TextLaunchIncompleteFooter = emoji.Stopwatch.String() + " Not all bots have been launched yet, " +
		"meaning bot/filled slot status may not be up to date."

	TextServerNotFoundMsg        = "I do not manage bots for a server called %q."
	TextServerNotFoundHintMsg    = "I do not manage bots for a server called %q. Try %s or use the command without a server name to see all available servers."
	TextBotNotFoundMsg           = "I do not manage a bot called %q on a server called %q. Maybe run " + CmdStatus + " once to check server and bot names?"
	TextFillAllMsg               = emoji.ChequeredFlag.String() + " Ok, calling all hands on deck."
	TextFillServerMsg            = emoji.ChequeredFlag.String() + " Ok, bots will join %s shortly."
	TextClearAllMsg              = "Ok, shutting it all down for now."
	TextClearServerMsg           = "Ok, bots will leave %s shortly."
	TextSetSlotsUsageMsg         = "Usage: " + CmdSetSlots + " <server> <slots>"
	TextSetEnabledUsageMsg       = "Usage: " + CmdSetEnabled + " <server> <bot|all> <true|false>"
	TextRestartUsageMsg          = "Usage: " + CmdRestart + " <server> <bot>"
	TextNotEnoughBotsMsg         = "%s does not have enough bots set up to ensure that %d slots can be filled (has: %d, needs: %d)."
	TextSlotsUnchangedMsg        = "Ahem, %s is already set up to get %d bots."
	TextInvalidSlotsMsg          = "%d is not a valid number of slots for %s, use an even number between 0 and %d."
	TextSlotsIncreasedMsg        = emoji.CheckMarkButton.String() + " Ok, temporarily increased number of slots to fill on %s from %d to %d. Bots will join to fill the additional slots shortly."
	TextSlotsDecreasedMsg        = emoji.CheckMarkButton.String() + " Ok, temporarily decreased number of slots to fill on %s from %d to %d. Bots will leave to free slots shortly."
	TextSlotsPinnedMsg           = emoji.CheckMarkButton.String() + " Ok, number of slots to fill on %s stays at %d until " + CmdFill + "."
	TextBotEnabledMsg            = "Ok, %s has been enabled and will attempt to join %s shortly."
	TextBotDisabledMsg           = "Ok, %s has been disabled and will leave %s shortly."
	TextAllBotsEnabledMsg        = "Ok, all bots of %s have been enabled, maintenance decides which of them join."
	TextAllBotsDisabledMsg       = "Ok, all bots of %s have been disabled and will leave shortly."
	TextBotRestartingMsg         = "Ok, %s will leave %s and rejoin shortly."
	TextBotNotRunningMsg         = "Um, %s is not in game on %s, there is nothing to restart."
	TextBotAlreadyEnabledMsg     = "Um, %s already is enabled."
	TextBotAlreadyDisabledMsg    = "Um, %s already is disabled."
	TextStatusTitleMsg           = emoji.VideoGame.String() + " Status summary for %s (%s:%d)"
	TextAutobalanceInProgressMsg = "yes, started %s"
)
