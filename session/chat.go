package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ragchat/chatstream/api"
	"github.com/ragchat/chatstream/conn"
	"github.com/ragchat/chatstream/log"
	"github.com/ragchat/chatstream/store"
	"github.com/ragchat/chatstream/transcript"
	"github.com/ragchat/chatstream/wire"
)

// Snapshot is what the rendering layer receives after every state change:
// an immutable transcript plus the loading flag it needs for projection.
type Snapshot struct {
	Transcript *transcript.Transcript
	Loading    bool
	ConnState  conn.State
}

// Options configures a Chat.
type Options struct {
	// OnSnapshot is invoked after every transcript or connection change.
	// Calls are serialized; the callback must not block for long.
	OnSnapshot func(Snapshot)

	// Store, when set, persists the transcript after every completed turn.
	Store store.TranscriptStore

	// Logger defaults to the package-level logger.
	Logger log.Logger
}

// Chat orchestrates one chat session: it owns the connection manager and the
// assembler, seeds history over REST, and exposes the user-facing actions
// (send, cancel, clear, feedback).
type Chat struct {
	sess   Session
	chatID string
	client *api.Client
	mgr    *conn.Manager
	asm    *transcript.Assembler
	st     store.TranscriptStore
	onSnap func(Snapshot)
	logger log.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewChat builds a chat over an already-configured connection manager and
// REST client. Nothing connects until Start.
func NewChat(sess Session, chatID string, client *api.Client, mgr *conn.Manager, opts Options) *Chat {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Chat{
		sess:   sess,
		chatID: chatID,
		client: client,
		mgr:    mgr,
		asm:    transcript.NewAssembler(opts.Logger),
		st:     opts.Store,
		onSnap: opts.OnSnapshot,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
}

// Start seeds the transcript from stored history, connects the socket and
// launches the reconciliation loop.
func (c *Chat) Start(ctx context.Context) error {
	history, err := c.client.GetHistory(ctx, c.sess.BotID, c.chatID)
	if err != nil {
		return fmt.Errorf("session: seed history: %w", err)
	}
	seeded := transcript.New()
	for _, frag := range history {
		seeded = transcript.ReduceWithLogger(seeded, frag, c.logger)
	}
	c.asm.Reset(seeded)

	if err := c.mgr.Connect(ctx); err != nil {
		return fmt.Errorf("session: connect: %w", err)
	}

	go c.loop()
	c.publish()
	return nil
}

// loop is the single consumer of the fragment channel. All transcript
// mutation for inbound fragments happens here, in arrival order.
func (c *Chat) loop() {
	for {
		select {
		case frag := <-c.mgr.Fragments():
			c.asm.Apply(frag)
			c.publish()
			if frag.Type == wire.TypeStop {
				c.persist()
			}
		case st := <-c.mgr.States():
			// Any departure from Open ends in-flight streaming; the
			// partially assembled turn stays as-is.
			if st != conn.Open {
				c.asm.Interrupt()
			}
			c.publish()
		case <-c.done:
			return
		}
	}
}

// Send appends the user's message to the transcript synchronously, before
// any reply fragment can arrive, then writes it to the socket. On a send
// failure the local message is kept (the user sees what they typed and can
// retry) but loading is cleared.
func (c *Chat) Send(text string) error {
	frag := wire.NewHumanMessage(text)
	c.asm.Apply(frag)
	c.publish()

	if err := c.mgr.Send(frag); err != nil {
		c.asm.Interrupt()
		c.publish()
		return fmt.Errorf("session: send: %w", err)
	}
	return nil
}

// Cancel abandons the in-flight AI response by recycling the connection.
// Partial output is kept.
func (c *Chat) Cancel(ctx context.Context) error {
	err := c.mgr.Cancel(ctx)
	c.asm.Interrupt()
	c.publish()
	return err
}

// Clear truncates the chat history server-side and, only on success, locally.
func (c *Chat) Clear(ctx context.Context) error {
	if err := c.client.ClearHistory(ctx, c.sess.BotID, c.chatID); err != nil {
		return fmt.Errorf("session: clear history: %w", err)
	}
	c.asm.Reset(nil)
	c.publish()
	if c.st != nil {
		if err := c.st.Delete(ctx, c.chatID); err != nil {
			c.logger.Warn("clear local transcript store: %v", err)
		}
	}
	return nil
}

// Feedback persists a vote and applies it locally only after the backend
// accepted it. Good votes toggle; bad votes carry the captured tag and
// reason. Concurrent votes on the same message are last-write-wins.
func (c *Chat) Feedback(ctx context.Context, messageID string, fb wire.Feedback) error {
	_, effective, err := transcript.ApplyFeedback(c.asm.Snapshot(), messageID, fb)
	if err != nil {
		return err
	}
	if err := c.client.SubmitFeedback(ctx, c.sess.BotID, c.chatID, messageID, effective); err != nil {
		return fmt.Errorf("session: submit feedback: %w", err)
	}
	if _, err := c.asm.SetFeedback(messageID, fb); err != nil {
		return err
	}
	c.publish()
	return nil
}

// Transcript returns the current immutable snapshot.
func (c *Chat) Transcript() *transcript.Transcript {
	return c.asm.Snapshot()
}

// Loading reports whether an AI turn is streaming.
func (c *Chat) Loading() bool {
	return c.asm.Loading()
}

// Close stops the loop and tears the connection down. The final transcript
// is persisted when a store is configured.
func (c *Chat) Close() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.done)
		err = c.mgr.Close()
		c.persist()
	})
	return err
}

func (c *Chat) publish() {
	if c.onSnap == nil {
		return
	}
	c.onSnap(Snapshot{
		Transcript: c.asm.Snapshot(),
		Loading:    c.asm.Loading(),
		ConnState:  c.mgr.State(),
	})
}

func (c *Chat) persist() {
	if c.st == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec := &store.Record{
		ChatID:     c.chatID,
		BotID:      c.sess.BotID,
		Transcript: c.asm.Snapshot(),
		UpdatedAt:  time.Now(),
	}
	if err := c.st.Save(ctx, rec); err != nil {
		c.logger.Warn("persist transcript: %v", err)
	}
}
