package session

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
)

const (
	msgUnauthorized = "Sorry, this is a private bot."
	msgExpired      = "Session expired. You can ignore this message."
	msgFallback     = "Sorry, I don't understand. Send /help for a list of commands."
	msgNoCameras    = "No cameras configured."
	msgNoSnapshots  = "Snapshots are disabled."
	msgNoVoice      = "Voice playback is unavailable."
	msgIntervalUse  = "Usage: /snapshot interval <seconds>"
	msgSnapshotUse  = "Usage: /snapshot [interval [<seconds>] | cameras [<name> ...]]"
	msgMainMenu     = "What do you want to do?"
	msgCameraMenu   = "Choose a camera:"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(
	`Hi{{if .Name}} {{.Name}}{{end}}! I forward what your cameras see.
Alerting is {{if .Alerting}}on{{else}}off{{end}}.`))

const helpText = `/start – main menu
/enable, /disable, /toggle – switch alerting (also: on, off, go, stop, 1, 0, ein, aus)
/snapshot – take a snapshot
/snapshot interval <seconds> – send snapshots periodically (0 switches off)
/snapshot interval – show the current interval
/snapshot cameras [<name> ...] – cameras for periodic snapshots (none = all)
/uptime – time since start
/help – this text`

func welcome(name string, alerting bool) string {
	var b strings.Builder
	_ = welcomeTmpl.Execute(&b, struct {
		Name     string
		Alerting bool
	}{name, alerting})
	return b.String()
}

func alertingChanged(on bool, by string) string {
	state := "🔕 Alerting disabled"
	if on {
		state = "🔔 Alerting enabled"
	}
	if by == "" {
		return state + "."
	}
	return fmt.Sprintf("%s by %s.", state, by)
}

func uptime(d time.Duration) string {
	return "Up for " + d.Round(time.Second).String() + "."
}

func intervalState(secs int) string {
	if secs <= 0 {
		return "Snapshot interval not set."
	}
	return fmt.Sprintf("Snapshot interval: %d s.", secs)
}

func unsupported(kind string) string {
	return fmt.Sprintf("I can't do anything with %s messages.", kind)
}

func unknownCommand(cmd string) string {
	return fmt.Sprintf("Unknown command %s. Send /help for a list of commands.", cmd)
}

func mainMenu(alerting bool) chat.Menu {
	toggle := chat.Button{Text: "🔔 Enable alerting", Data: cbAlertOn}
	if alerting {
		toggle = chat.Button{Text: "🔕 Disable alerting", Data: cbAlertOff}
	}
	return chat.Menu{
		{toggle},
		{{Text: "📸 Snapshot", Data: cbSnapshotMenu}},
	}
}

func cameraMenu(cams []media.Camera) chat.Menu {
	menu := make(chat.Menu, 0, len(cams)+2)
	for i, c := range cams {
		menu = append(menu, []chat.Button{{Text: "📷 " + c.Name, Data: fmt.Sprintf("%s%d", cbCameraPrefix, i)}})
	}
	if len(cams) > 1 {
		menu = append(menu, []chat.Button{{Text: "All cameras", Data: cbCameraAll}})
	}
	return append(menu, []chat.Button{{Text: "⬅️ Back", Data: cbMainMenu}})
}
