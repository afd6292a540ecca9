package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/feed"
	"github.com/patiponrmutl/thaimilitary/triage"
)

const writeWait = 10 * time.Second

type LiveOptions struct {
	Clock    clock.Clock
	Location *time.Location
	Intents  *triage.Confirmations

	// Refresh re-renders the view so requests cross into overdue
	// without any store write.
	Refresh time.Duration
	Logger  *slog.Logger
}

// LiveHandler serves GET /admin/live. Every connection owns one feed
// and one dashboard for its whole lifetime.
type LiveHandler struct {
	source   feed.Source
	mutator  triage.Mutator
	opts     LiveOptions
	upgrader websocket.Upgrader
}

// clientMsg คำสั่งจากหน้า dashboard
type clientMsg struct {
	Type  string `json:"type"`
	Tab   string `json:"tab,omitempty"`
	ID    string `json:"id,omitempty"`
	Token string `json:"token,omitempty"`
}

type serverMsg struct {
	Type   string         `json:"type"`
	View   *triage.View   `json:"view,omitempty"`
	Intent *triage.Intent `json:"intent,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func NewLiveHandler(src feed.Source, m triage.Mutator, opts LiveOptions) *LiveHandler {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Intents == nil {
		opts.Intents = triage.NewConfirmations(opts.Clock, 2*time.Minute)
	}
	if opts.Refresh <= 0 {
		opts.Refresh = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LiveHandler{
		source:  src,
		mutator: m,
		opts:    opts,
		upgrader: websocket.Upgrader{
			// token ตรวจที่ middleware แล้ว
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GET /admin/live (websocket)
func (h *LiveHandler) Live(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.opts.Logger.Warn("websocket upgrade", "err", err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	log := h.opts.Logger.With("remote", c.RealIP())
	log.Info("live dashboard connected")
	defer log.Info("live dashboard disconnected")

	f := feed.Open(ctx, h.source, feed.WithClock(h.opts.Clock), feed.WithLogger(log))
	defer f.Close()

	d := triage.NewDashboard(h.mutator, triage.Options{
		Clock:    h.opts.Clock,
		Location: h.opts.Location,
		Intents:  h.opts.Intents,
	})

	cmds := make(chan clientMsg)
	readErr := make(chan error, 1)
	go readLoop(ctx, conn, cmds, readErr)

	ticker := h.opts.Clock.NewTicker(h.opts.Refresh)
	defer ticker.Stop()

	updates := f.Updates()
	if err := writeView(conn, d); err != nil {
		return nil
	}

	for {
		var out []serverMsg
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			log.Debug("live read ended", "err", err)
			return nil
		case snap, ok := <-updates:
			if !ok {
				// feed ปิดเอง = subscription หลุด แสดงสถานะแล้วรอให้ client ปิด
				updates = nil
				d.SetState(feed.Unavailable)
				log.Warn("live feed unavailable", "err", f.Err())
			} else {
				d.Apply(snap)
			}
			out = viewMsg(d)
		case <-ticker.C:
			out = viewMsg(d)
		case m := <-cmds:
			out = h.handle(ctx, log, d, m)
		}

		for _, m := range out {
			if err := writeMsg(conn, m); err != nil {
				log.Debug("live write", "err", err)
				return nil
			}
		}
	}
}

func (h *LiveHandler) handle(ctx context.Context, log *slog.Logger, d *triage.Dashboard, m clientMsg) []serverMsg {
	var err error
	switch m.Type {
	case "tab":
		var cat triage.Category
		if cat, err = triage.ParseCategory(m.Tab); err != nil {
			return []serverMsg{{Type: "error", Error: "INVALID_TAB"}}
		}
		d.SetTab(cat)
	case "select":
		_, err = d.Select(m.ID)
	case "close":
		d.ClearSelection()
	case "accept", "delete":
		var in triage.Intent
		if m.Type == "accept" {
			in, err = d.RequestAccept(m.ID)
		} else {
			in, err = d.RequestDelete(m.ID)
		}
		if err == nil {
			return []serverMsg{{Type: "intent", Intent: &in}}
		}
	case "confirm":
		var in triage.Intent
		in, err = d.Confirm(ctx, m.Token)
		if err == nil {
			log.Info("intent confirmed", "action", in.Action, "request", in.RequestID)
		}
	case "cancel":
		d.Cancel(m.Token)
	default:
		return []serverMsg{{Type: "error", Error: "UNKNOWN_MESSAGE"}}
	}

	if err != nil {
		code := errorCode(err)
		if code == "STORE_ERROR" {
			log.Error("live command", "type", m.Type, "err", err)
		}
		return []serverMsg{{Type: "error", Error: code}}
	}
	return viewMsg(d)
}

func readLoop(ctx context.Context, conn *websocket.Conn, cmds chan<- clientMsg, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		var m clientMsg
		if json.Unmarshal(data, &m) != nil {
			m = clientMsg{}
		}
		select {
		case cmds <- m:
		case <-ctx.Done():
			return
		}
	}
}

func viewMsg(d *triage.Dashboard) []serverMsg {
	v := d.View()
	return []serverMsg{{Type: "view", View: &v}}
}

func writeView(conn *websocket.Conn, d *triage.Dashboard) error {
	return writeMsg(conn, viewMsg(d)[0])
}

func writeMsg(conn *websocket.Conn, m serverMsg) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(m)
}
