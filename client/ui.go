package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

// InitGui initializes the gocui screen
func (app *ChatApp) InitGui() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("failed to initialize gocui: %w", err)
	}
	app.Gui = g
	g.Cursor = true
	g.SetManagerFunc(app.layout)
	return nil
}

// UpdateMessages updates the message view
func (app *ChatApp) UpdateMessages(g *gocui.Gui) error {
	v, err := g.View("messages")
	if err != nil {
		return err
	}
	v.Clear()
	peerName := app.peerName()
	for _, msg := range app.core.Messages() {
		fmt.Fprintln(v, formatMessage(msg, peerName))
	}
	return nil
}

// SendMessageHandler handles sending messages on Enter press
func (app *ChatApp) SendMessageHandler(g *gocui.Gui, v *gocui.View) error {
	message := strings.TrimSpace(v.Buffer())
	if message == "" {
		return nil
	}
	if err := app.sendMessage(message); err != nil {
		app.logger.Errorf("Error sending message: %v", err)
		return app.showStatus(g, "not sent: "+err.Error())
	}
	v.Clear()
	v.SetCursor(0, 0)
	if err := app.showStatus(g, ""); err != nil {
		return err
	}
	return app.UpdateMessages(g)
}

func (app *ChatApp) showStatus(g *gocui.Gui, text string) error {
	v, err := g.View("status")
	if err != nil {
		return err
	}
	v.Clear()
	fmt.Fprint(v, text)
	return nil
}

func (app *ChatApp) peerName() string {
	if p := app.core.Peer(); p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return "peer"
}

// Layout function for the UI
func (app *ChatApp) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("messages", 0, 0, maxX-1, maxY-7); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Chat with " + app.peerName() + " (Ctrl-C ends the session)"
		v.Autoscroll = true
		v.Wrap = true
		if err := app.UpdateMessages(g); err != nil {
			return err
		}
	}

	if v, err := g.SetView("status", 0, maxY-6, maxX-1, maxY-4); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Frame = false
	}

	if v, err := g.SetView("input", 0, maxY-4, maxX-1, maxY-2); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Type a message"
		v.Editable = true
		v.Wrap = true
		if _, err := g.SetCurrentView("input"); err != nil {
			return err
		}
	}
	return nil
}
