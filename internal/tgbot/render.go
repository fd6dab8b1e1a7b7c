package tgbot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bloops-games/botmanager/internal/fleet"
	"github.com/bloops-games/botmanager/internal/strpool"
	"github.com/bloops-games/botmanager/internal/tgbot/resource"
	"github.com/bloops-games/botmanager/internal/util"
	"github.com/enescakir/emoji"
)

const columnPadding = 3

func renderStatus(s *fleet.Server, detailed, launched bool, now time.Time) string {
	st := s.Snapshot()
	bots := s.Bots()

	buf := strpool.Get()
	defer strpool.Put(buf)

	buf.WriteString(fmt.Sprintf(resource.TextStatusTitleMsg, st.Config.Name, st.Config.Address, st.Config.Port))
	buf.WriteString("\n\n")

	buf.WriteString("Slots: ")
	buf.WriteString(strconv.Itoa(st.Config.Slots))
	if target := st.TargetSlots(); target != st.Config.Slots {
		buf.WriteString(", temporarily changed to ")
		buf.WriteString(strconv.Itoa(target))
	}
	buf.WriteString("\n")

	enabled, onServer := 0, 0
	for _, b := range bots {
		status := b.Status()
		if status.Enabled {
			enabled++
		}
		if status.OnServer {
			onServer++
		}
	}

	buf.WriteString(emoji.Robot.String())
	buf.WriteString(" Bots enabled: ")
	buf.WriteString(strconv.Itoa(enabled))
	buf.WriteString("\n")
	buf.WriteString(emoji.Joystick.String())
	buf.WriteString(" Bots on server: ")
	buf.WriteString(strconv.Itoa(onServer))
	buf.WriteString("\n")
	buf.WriteString("Autobalance in progress: ")
	if st.AutobalanceInProgress {
		buf.WriteString(fmt.Sprintf(resource.TextAutobalanceInProgressMsg, util.Ago(now, st.AutobalanceStartedAt)))
	} else {
		buf.WriteString(util.YesNo(false))
	}
	buf.WriteString("\n")

	if detailed {
		buf.WriteString("\n")
		renderBotTable(buf, s, now)
	}

	if !launched {
		buf.WriteString("\n")
		buf.WriteString(resource.TextLaunchIncompleteFooter)
	}

	return strings.TrimRight(buf.String(), "\n")
}

func renderBotTable(buf *strings.Builder, s *fleet.Server, now time.Time) {
	headings := []string{"Bot", "Enabled", "On server", "Last checked"}
	widths := []int{len(headings[0]), len(headings[1]), len(headings[2]), len(headings[3])}
	for _, b := range s.Bots() {
		if n := len(b.Config().Basename); n > widths[0] {
			widths[0] = n
		}
	}

	total := 0
	for i, heading := range headings {
		if i < len(headings)-1 {
			widths[i] += columnPadding
		}
		buf.WriteString(pad(heading, widths[i]))
		total += widths[i]
	}
	buf.WriteString("\n")
	buf.WriteString(strings.Repeat("-", total))
	buf.WriteString("\n")

	for _, b := range s.Bots() {
		status := b.Status()
		buf.WriteString(pad(b.Config().Basename, widths[0]))
		buf.WriteString(pad(util.YesNo(status.Enabled), widths[1]))
		buf.WriteString(pad(util.YesNo(status.OnServer), widths[2]))
		buf.WriteString(util.Ago(now, status.OnServerLastCheckedAt))
		buf.WriteString("\n")
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}

	return s + strings.Repeat(" ", width-len(s))
}
