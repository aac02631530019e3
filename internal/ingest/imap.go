package ingest

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	id "github.com/emersion/go-imap-id"
	"github.com/maildeck/core/internal/database/models"
)

const (
	dialTimeout    = 10 * time.Second
	commandTimeout = 5 * time.Minute // full syncs can take a while
	fetchBatchSize = 20
)

// RawMessage is one message as listed from a mailbox, before MIME parsing.
// A zero UID means the server did not report one.
type RawMessage struct {
	UID     uint32
	Subject string
	From    string
	To      []string
	Date    time.Time
	Size    uint32
	Raw     []byte
}

// Mailbox is one open mailbox session. List returns the INBOX messages
// matching the optional since filter, newest first.
type Mailbox interface {
	List(since time.Time) ([]RawMessage, error)
	Close() error
}

// Dialer opens mailbox sessions. The engine receives already-decrypted
// credentials from the account service and passes them through.
type Dialer interface {
	Dial(account *models.Account, password string) (Mailbox, error)
}

// IMAPDialer is the production Dialer backed by an IMAP client.
type IMAPDialer struct{}

// NewIMAPDialer creates a new IMAPDialer
func NewIMAPDialer() *IMAPDialer {
	return &IMAPDialer{}
}

// Dial connects and logs in to the account's IMAP server.
func (d *IMAPDialer) Dial(account *models.Account, password string) (Mailbox, error) {
	addr := fmt.Sprintf("%s:%d", account.IMAPHost, account.IMAPPort)
	dialer := &net.Dialer{Timeout: dialTimeout}

	var c *client.Client
	if account.UseSSL {
		tlsConfig := &tls.Config{ServerName: account.IMAPHost}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, err
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	c.Timeout = commandTimeout

	// Some providers (188.com, 163.com) require a client ID before login
	if ok, _ := c.Support("ID"); ok {
		idClient := id.NewClient(c)
		_, _ = idClient.ID(id.ID{
			id.FieldName:    "Maildeck",
			id.FieldVersion: "1.0.0",
		})
	}

	if err := c.Login(account.Username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return &imapMailbox{c: c}, nil
}

// imapMailbox wraps an authenticated IMAP client session.
type imapMailbox struct {
	c *client.Client
}

// List selects the INBOX and fetches every message matching the since
// filter. Bodies are fetched with BODY.PEEK so the server-side seen flags
// are left untouched.
func (m *imapMailbox) List(since time.Time) ([]RawMessage, error) {
	mbox, err := m.c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}
	if mbox.Messages == 0 {
		return []RawMessage{}, nil
	}

	seqNums, err := m.search(since, mbox.Messages)
	if err != nil {
		return nil, err
	}
	if len(seqNums) == 0 {
		return []RawMessage{}, nil
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchRFC822Size, section.FetchItem()}

	var out []RawMessage
	for i := 0; i < len(seqNums); i += fetchBatchSize {
		end := i + fetchBatchSize
		if end > len(seqNums) {
			end = len(seqNums)
		}

		seqSet := new(imap.SeqSet)
		seqSet.AddNum(seqNums[i:end]...)

		messages := make(chan *imap.Message, fetchBatchSize)
		done := make(chan error, 1)
		go func() {
			done <- m.c.Fetch(seqSet, items, messages)
		}()

		for msg := range messages {
			if msg == nil {
				continue
			}
			out = append(out, buildRawMessage(msg, section))
		}
		if err := <-done; err != nil {
			return nil, err
		}
	}

	// Reverse into newest-first order: servers return ascending sequence
	// numbers, and the dashboard wants recent mail to appear first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out, nil
}

// search resolves the sequence numbers to fetch. A failed or empty SEARCH
// falls back to the full mailbox, matching how flaky servers behave.
func (m *imapMailbox) search(since time.Time, total uint32) ([]uint32, error) {
	if !since.IsZero() {
		criteria := imap.NewSearchCriteria()
		criteria.Since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
		seqNums, err := m.c.Search(criteria)
		if err == nil {
			return seqNums, nil
		}
	}

	seqNums := make([]uint32, total)
	for i := uint32(1); i <= total; i++ {
		seqNums[i-1] = i
	}
	return seqNums, nil
}

// Close logs out the session
func (m *imapMailbox) Close() error {
	return m.c.Logout()
}

// buildRawMessage converts a fetched IMAP message into a RawMessage
func buildRawMessage(msg *imap.Message, section *imap.BodySectionName) RawMessage {
	raw := RawMessage{
		UID:  msg.Uid,
		Size: msg.Size,
	}

	if msg.Envelope != nil {
		raw.Subject = msg.Envelope.Subject
		raw.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			raw.From = formatAddress(msg.Envelope.From[0])
		}
		for _, addr := range msg.Envelope.To {
			raw.To = append(raw.To, formatAddress(addr))
		}
	}

	if literal := msg.GetBody(section); literal != nil {
		if content, err := io.ReadAll(literal); err == nil && len(content) > 0 {
			raw.Raw = content
		}
	}

	return raw
}

// formatAddress formats an IMAP address to a string
func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
	}
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}
