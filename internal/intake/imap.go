// Package intake feeds customer messages into the engine from sources
// other than the HTTP surface. The IMAP poller watches a support
// mailbox and turns unread emails into session messages, keyed by
// sender address so a customer's emails stay in one conversation.
package intake

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/lookfor-ai/maestro/internal/config"
	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/logging"
	"github.com/lookfor-ai/maestro/internal/orchestrator"
)

// Engine is the slice of the orchestrator the poller needs.
type Engine interface {
	StartSession(customer domain.Customer) (*domain.Session, error)
	Process(ctx context.Context, sessionID, text string) (*orchestrator.Result, error)
}

// Poller polls an IMAP mailbox and processes unread messages.
type Poller struct {
	cfg    config.IMAPConfig
	engine Engine
	log    *logging.Logger

	mu       sync.Mutex
	sessions map[string]string // sender address -> session id
}

// NewPoller creates an IMAP intake poller.
func NewPoller(cfg config.IMAPConfig, engine Engine, log *logging.Logger) *Poller {
	return &Poller{
		cfg:      cfg,
		engine:   engine,
		log:      log.Sub("intake"),
		sessions: make(map[string]string),
	}
}

// Run polls until the context is cancelled. Poll failures are logged
// and retried on the next tick; they never stop the loop.
func (p *Poller) Run(ctx context.Context) {
	interval := time.Duration(p.cfg.PollSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	p.log.Info().
		Str("server", p.cfg.Server).
		Str("mailbox", p.cfg.Mailbox).
		Dur("interval", interval).
		Msg("email intake started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx); err != nil {
			p.log.Warn().Err(err).Msg("mailbox poll failed")
		}
		select {
		case <-ctx.Done():
			p.log.Info().Msg("email intake stopped")
			return
		case <-ticker.C:
		}
	}
}

// poll connects, processes every unseen message, and marks the
// processed ones seen so they are not handled twice.
func (p *Poller) poll(ctx context.Context) error {
	c, err := p.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	mailbox := p.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, false); err != nil {
		return fmt.Errorf("selecting mailbox %s: %w", mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("searching for unseen messages: %w", err)
	}
	if len(seqNums) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	processed := new(imap.SeqSet)
	for msg := range messages {
		if ctx.Err() != nil {
			break
		}
		if err := p.handleMessage(ctx, msg, section); err != nil {
			p.log.Warn().Err(err).Uint32("seq", msg.SeqNum).Msg("email skipped")
			continue
		}
		processed.AddNum(msg.SeqNum)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	if !processed.Empty() {
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.Store(processed, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("marking messages seen: %w", err)
		}
	}
	return nil
}

func (p *Poller) connect() (*client.Client, error) {
	port := p.cfg.Port
	if port == 0 {
		port = 993
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Server, port)

	var (
		c   *client.Client
		err error
	)
	if p.cfg.UseTLS == nil || *p.cfg.UseTLS {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: p.cfg.Server})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func (p *Poller) handleMessage(ctx context.Context, msg *imap.Message, section *imap.BodySectionName) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return fmt.Errorf("message %d has no sender", msg.SeqNum)
	}
	from := msg.Envelope.From[0]

	text := emailText(msg, section)
	if strings.TrimSpace(text) == "" {
		text = msg.Envelope.Subject
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message %d is empty", msg.SeqNum)
	}

	return p.HandleEmail(ctx, from.Address(), from.PersonalName, text)
}

// HandleEmail routes one email into the sender's session, creating the
// session on first contact.
func (p *Poller) HandleEmail(ctx context.Context, address, name, text string) error {
	sessionID, err := p.sessionFor(address, name)
	if err != nil {
		return err
	}

	result, err := p.engine.Process(ctx, sessionID, text)
	if err != nil {
		return fmt.Errorf("processing email from %s: %w", address, err)
	}

	p.log.Info().
		Str("from", address).
		Str("sessionId", sessionID).
		Str("intent", string(result.Intent)).
		Bool("escalated", result.Escalated).
		Msg("email processed")
	return nil
}

// sessionFor returns the sender's session id, starting a session on
// first contact.
func (p *Poller) sessionFor(address, name string) (string, error) {
	key := strings.ToLower(address)

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.sessions[key]; ok {
		return id, nil
	}

	first, last := splitName(name)
	sess, err := p.engine.StartSession(domain.Customer{
		Email:     address,
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		return "", fmt.Errorf("starting session for %s: %w", address, err)
	}
	p.sessions[key] = sess.ID
	return sess.ID, nil
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch {
	case len(parts) == 0:
		return "", ""
	case len(parts) == 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// emailText extracts the plain-text body from a fetched message.
func emailText(msg *imap.Message, section *imap.BodySectionName) string {
	body := msg.GetBody(section)
	if body == nil {
		return ""
	}
	mr, err := mail.ReadMessage(body)
	if err != nil {
		return ""
	}
	buf, err := io.ReadAll(io.LimitReader(mr.Body, 64*1024))
	if err != nil {
		return ""
	}
	return string(buf)
}
