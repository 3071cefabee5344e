package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/scheduler"
	"github.com/jehaby/smarthomebot/internal/worker"
)

const maxIntervalSecs = int(scheduler.MaxInterval / time.Second)

const (
	cbAlertOn      = "alert:on"
	cbAlertOff     = "alert:off"
	cbMainMenu     = "menu:main"
	cbSnapshotMenu = "menu:snapshot"
	cbCameraAll    = "cam:all"
	cbCameraPrefix = "cam:"
)

// alertingWords are loose, case-insensitive alternatives to /enable and /disable.
var alertingWords = map[string]bool{
	"on": true, "go": true, "1": true, "ein": true,
	"off": false, "stop": false, "0": false, "aus": false,
}

type sessionState int

const (
	stateActive sessionState = iota
	stateClosed
)

// Session handles the messages of one authorized chat. Its methods run with
// mu held.
type Session struct {
	chatID int64
	m      *Manager

	mu    sync.Mutex
	state sessionState
	idle  *time.Timer
}

// open (re)installs the chat's persisted snapshot job.
func (s *Session) open() {
	cs := s.m.deps.Settings.Get(s.chatID)
	if cs.SnapshotIntervalSecs > 0 && s.m.deps.Queue.Enabled(media.CategorySnapshot) {
		s.m.deps.Scheduler.Set(s.chatID, cs.SnapshotIntervalSecs, s.periodicCameras())
	}
	slog.Info("session opened", "chat_id", s.chatID, "snapshot_interval", cs.SnapshotIntervalSecs)
}

// close cancels the chat's job. No periodic job outlives its session.
func (s *Session) close() {
	if s.state == stateClosed {
		return
	}
	s.state = stateClosed
	if s.idle != nil {
		s.idle.Stop()
	}
	s.m.deps.Scheduler.Cancel(s.chatID)
	slog.Info("session closed", "chat_id", s.chatID)
}

func (s *Session) handle(ctx context.Context, in chat.Inbound) {
	switch in.Kind {
	case chat.KindText:
		s.onText(ctx, in)
	case chat.KindCallback:
		s.onCallback(ctx, in)
	case chat.KindVoice:
		s.onVoice(ctx, in)
	case chat.KindPhoto, chat.KindSticker, chat.KindDocument:
		s.reply(ctx, unsupported(in.Kind.String()))
	default:
		kind := in.OtherType
		if kind == "" {
			kind = in.Kind.String()
		}
		s.reply(ctx, unsupported(kind))
	}
}

func (s *Session) onText(ctx context.Context, in chat.Inbound) {
	fields := strings.Fields(in.Text)
	if len(fields) == 0 {
		s.reply(ctx, msgFallback)
		return
	}
	cmd := fields[0]
	// commands in groups are addressed as /cmd@botname
	if i := strings.IndexByte(cmd, '@'); strings.HasPrefix(cmd, "/") && i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		s.reply(ctx, welcome(in.From, s.m.deps.State.Alerting()))
		s.sendMainMenu(ctx)
	case "/enable":
		s.setAlerting(ctx, true, in.From)
	case "/disable":
		s.setAlerting(ctx, false, in.From)
	case "/toggle":
		s.setAlerting(ctx, !s.m.deps.State.Alerting(), in.From)
	case "/snapshot":
		s.onSnapshot(ctx, fields[1:])
	case "/help":
		s.reply(ctx, helpText)
	case "/uptime":
		s.reply(ctx, uptime(s.m.deps.State.Uptime()))
	default:
		if strings.HasPrefix(cmd, "/") {
			s.reply(ctx, unknownCommand(cmd))
			return
		}
		if on, ok := alertingWords[strings.ToLower(cmd)]; ok && len(fields) == 1 {
			s.setAlerting(ctx, on, in.From)
			return
		}
		s.reply(ctx, msgFallback)
	}
}

// setAlerting overwrites the shared flag and tells every recipient.
func (s *Session) setAlerting(ctx context.Context, on bool, by string) {
	s.m.deps.State.SetAlerting(on)
	slog.Info("alerting changed", "on", on, "chat_id", s.chatID)
	s.m.broadcast(ctx, alertingChanged(on, by))
}

func (s *Session) onSnapshot(ctx context.Context, args []string) {
	if !s.m.deps.Queue.Enabled(media.CategorySnapshot) {
		s.reply(ctx, msgNoSnapshots)
		return
	}
	if len(args) == 0 {
		s.sendCameraMenu(ctx)
		return
	}
	switch args[0] {
	case "interval":
		if len(args) == 1 {
			s.reply(ctx, intervalState(s.m.deps.Settings.Get(s.chatID).SnapshotIntervalSecs))
			return
		}
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs > maxIntervalSecs {
			s.reply(ctx, fmt.Sprintf("Invalid interval %q. %s", args[1], msgIntervalUse))
			return
		}
		s.setInterval(secs)
		s.reply(ctx, intervalState(secs))
	case "cameras":
		s.setCameras(ctx, args[1:])
	default:
		s.reply(ctx, msgSnapshotUse)
	}
}

// setInterval persists and applies the chat's snapshot interval.
func (s *Session) setInterval(secs int) {
	secs = max(secs, 0)
	cs := s.m.deps.Settings.Get(s.chatID)
	cs.SnapshotIntervalSecs = secs
	s.m.deps.Settings.Put(cs)
	s.m.deps.Scheduler.Set(s.chatID, secs, s.periodicCameras())
}

func (s *Session) setCameras(ctx context.Context, names []string) {
	for _, n := range names {
		if _, ok := s.m.camera(n); !ok {
			s.reply(ctx, fmt.Sprintf("Unknown camera %q.", n))
			return
		}
	}
	cs := s.m.deps.Settings.Get(s.chatID)
	cs.Cameras = names
	s.m.deps.Settings.Put(cs)
	if cs.SnapshotIntervalSecs > 0 {
		s.m.deps.Scheduler.Set(s.chatID, cs.SnapshotIntervalSecs, s.periodicCameras())
	}
	if len(names) == 0 {
		s.reply(ctx, "Periodic snapshots: all cameras.")
		return
	}
	s.reply(ctx, "Periodic snapshots: "+strings.Join(names, ", ")+".")
}

// periodicCameras returns the chat's selection, or every camera.
func (s *Session) periodicCameras() []media.Camera {
	sel := s.m.deps.Settings.Get(s.chatID).Cameras
	if len(sel) == 0 {
		return s.m.opt.Cameras
	}
	var out []media.Camera
	for _, c := range s.m.opt.Cameras {
		if sel.Contains(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Session) onCallback(ctx context.Context, in chat.Inbound) {
	switch {
	case in.Data == cbAlertOn, in.Data == cbAlertOff:
		s.setAlerting(ctx, in.Data == cbAlertOn, in.From)
		s.sendMainMenu(ctx)
	case in.Data == cbMainMenu:
		s.sendMainMenu(ctx)
	case in.Data == cbSnapshotMenu:
		s.onSnapshot(ctx, nil)
	case in.Data == cbCameraAll:
		s.requestSnapshot(ctx, s.m.opt.Cameras)
	case strings.HasPrefix(in.Data, cbCameraPrefix):
		i, err := strconv.Atoi(strings.TrimPrefix(in.Data, cbCameraPrefix))
		if err != nil || i < 0 || i >= len(s.m.opt.Cameras) {
			slog.Warn("bad camera callback", "chat_id", s.chatID, "data", in.Data)
			return
		}
		s.requestSnapshot(ctx, s.m.opt.Cameras[i:i+1])
	default:
		slog.Warn("unknown callback", "chat_id", s.chatID, "data", in.Data)
	}
}

// requestSnapshot queues an ad-hoc snapshot; the menu is shown again once it
// has been delivered.
func (s *Session) requestSnapshot(ctx context.Context, cams []media.Camera) {
	t := media.NewTask(media.CategorySnapshot)
	t.ChatID = s.chatID
	t.Cameras = cams
	t.Done = s.sendCameraMenu
	if err := s.m.deps.Queue.Enqueue(ctx, t); err != nil {
		s.enqueueFailed(ctx, t, err)
	}
}

func (s *Session) onVoice(ctx context.Context, in chat.Inbound) {
	if !s.m.opt.AudioEnabled || !s.m.deps.Queue.Enabled(media.CategoryVoice) {
		s.reply(ctx, msgNoVoice)
		return
	}
	t := media.NewTask(media.CategoryVoice)
	t.ChatID = s.chatID
	t.FileID = in.FileID
	if err := s.m.deps.Queue.Enqueue(ctx, t); err != nil {
		s.enqueueFailed(ctx, t, err)
	}
}

func (s *Session) enqueueFailed(ctx context.Context, t *media.Task, err error) {
	slog.Error("enqueue failed", "chat_id", s.chatID, "category", t.Category, "err", err)
	if errors.Is(err, worker.ErrDisabled) {
		s.reply(ctx, fmt.Sprintf("%s is disabled.", t.Category))
		return
	}
	s.reply(ctx, fmt.Sprintf("Could not queue %s: %v", t.Category, err))
}

func (s *Session) sendMainMenu(ctx context.Context) {
	if err := s.m.deps.Sender.SendMenu(ctx, s.chatID, msgMainMenu, mainMenu(s.m.deps.State.Alerting())); err != nil {
		slog.Error("send menu failed", "chat_id", s.chatID, "err", err)
	}
}

// sendCameraMenu does not touch session state; it also runs on a worker as
// a task completion callback.
func (s *Session) sendCameraMenu(ctx context.Context) {
	if len(s.m.opt.Cameras) == 0 {
		s.reply(ctx, msgNoCameras)
		return
	}
	if err := s.m.deps.Sender.SendMenu(ctx, s.chatID, msgCameraMenu, cameraMenu(s.m.opt.Cameras)); err != nil {
		slog.Error("send menu failed", "chat_id", s.chatID, "err", err)
	}
}

func (s *Session) reply(ctx context.Context, text string) {
	if err := s.m.deps.Sender.SendText(ctx, s.chatID, text); err != nil {
		slog.Error("reply failed", "chat_id", s.chatID, "err", err)
	}
}
