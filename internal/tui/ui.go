// Package tui renders a live view of the tunnel state by polling the
// control API.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/RocketMan-System/rocketman-service/internal/api"
)

const defaultRefreshInterval = time.Second

// Option configures UI behaviour.
type Option func(*UI)

// WithRefreshInterval overrides the poll cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.refresh = d
		}
	}
}

// UI coordinates the interactive status view backed by tview.
type UI struct {
	app    *tview.Application
	table  *tview.Table
	footer *tview.TextView

	client  *api.Client
	refresh time.Duration

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a UI polling the provided control API client.
func New(client *api.Client, opts ...Option) *UI {
	app := tview.NewApplication()

	table := tview.NewTable().SetFixed(1, 0)
	table.SetBorder(true).SetTitle("Tunnel")

	footer := tview.NewTextView().SetDynamicColors(true)
	footer.SetText("[gray]q quit · r refresh")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 1, true).
		AddItem(footer, 1, 0, false)

	ui := &UI{
		app:     app,
		table:   table,
		footer:  footer,
		client:  client,
		refresh: defaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(ui)
	}

	app.SetRoot(flex, true)
	app.SetInputCapture(ui.handleKey)
	ui.render(api.Result{}, fmt.Errorf("connecting"))

	return ui
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyRune {
		switch event.Rune() {
		case 'q':
			u.Stop()
			return nil
		case 'r':
			go u.poll()
			return nil
		}
	}
	if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyCtrlC {
		u.Stop()
		return nil
	}
	return event
}

// Run starts the application loop and the poller until Stop is invoked or
// the context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.pollLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()
	cancel()
	u.wg.Wait()
	return err
}

// Stop terminates the application loop.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		if u.cancel != nil {
			u.cancel()
		}
		u.cancelMu.Unlock()
		u.app.Stop()
	})
}

func (u *UI) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(u.refresh)
	defer ticker.Stop()

	u.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.poll()
		}
	}
}

func (u *UI) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), u.refresh)
	result, err := u.client.Status(ctx)
	cancel()

	u.app.QueueUpdateDraw(func() {
		u.render(result, err)
	})
}

func (u *UI) render(result api.Result, err error) {
	u.table.Clear()

	setRow := func(row int, label, value, color string) {
		u.table.SetCell(row, 0, tview.NewTableCell("[gray]"+label).SetExpansion(1))
		u.table.SetCell(row, 1, tview.NewTableCell("["+color+"]"+value).SetExpansion(3))
	}

	if err != nil {
		setRow(0, "control API", "unreachable", "red")
		setRow(1, "detail", err.Error(), "gray")
		return
	}

	stateColor := "yellow"
	switch result.Status {
	case api.StatusRunning:
		stateColor = "green"
	case api.StatusStopped:
		stateColor = "gray"
	}

	setRow(0, "state", string(result.Status), stateColor)
	pid := "-"
	if result.PID != 0 {
		pid = fmt.Sprintf("%d", result.PID)
	}
	setRow(1, "pid", pid, "white")
	setRow(2, "sing-box", orDash(result.TunnelPath), "white")
	setRow(3, "config", orDash(result.ConfigPath), "white")
	setRow(4, "refreshed", time.Now().Format("15:04:05"), "gray")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
