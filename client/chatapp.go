package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nullchat/state"

	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"
)

type ChatApp struct {
	Gui    *gocui.Gui
	core   *Core
	logger logrus.FieldLogger
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewChatApp wraps a core whose session is already connected.
func NewChatApp(core *Core, logger logrus.FieldLogger) *ChatApp {
	return &ChatApp{core: core, logger: logger, done: make(chan struct{})}
}

// Run opens the chat window and blocks until the user quits. The session is
// reset on the way out.
func (app *ChatApp) Run() error {
	if err := app.InitGui(); err != nil {
		return err
	}
	defer app.Gui.Close()

	if err := app.Gui.SetKeybinding("input", gocui.KeyEnter, gocui.ModNone, app.SendMessageHandler); err != nil {
		return fmt.Errorf("failed to bind enter: %w", err)
	}
	if err := app.Gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, app.quit); err != nil {
		return fmt.Errorf("failed to bind ctrl-c: %w", err)
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.listenForMessages()
	}()

	if err := app.Gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// listenForMessages redraws the message view whenever the peer writes.
func (app *ChatApp) listenForMessages() {
	incoming := app.core.Incoming()
	for {
		select {
		case <-app.done:
			return
		case _, ok := <-incoming:
			if !ok {
				return
			}
			app.Gui.Update(func(g *gocui.Gui) error {
				return app.UpdateMessages(g)
			})
		}
	}
}

func (app *ChatApp) sendMessage(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := app.core.Send(ctx, text)
	return err
}

// quit ends the chat and wipes the session
func (app *ChatApp) quit(_ *gocui.Gui, _ *gocui.View) error {
	app.logger.Info("Ending chat...")
	close(app.done)
	app.wg.Wait()
	app.core.Reset(context.Background())
	return gocui.ErrQuit
}

func formatMessage(m state.Message, peerName string) string {
	who := "You"
	if m.Sender == state.SenderPeer {
		who = peerName
	}
	return fmt.Sprintf("%s [%s] %s", m.Timestamp.Format("15:04"), who, m.Text)
}
