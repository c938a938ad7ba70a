package engine

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"groupsync/internal/blob"
	"groupsync/internal/model"
	"groupsync/internal/transport"
)

// mailTranscoder converts between stored message rows (plus their parsed
// MIME structure) and the protocol-neutral MailItem.
type mailTranscoder struct {
	e *Engine
}

var _ transcoder = (*mailTranscoder)(nil)

// List surfaces the messages of one folder received at or after cutoff.
// The modification marker is the native receipt timestamp; the flag bit
// carries the read state (stored bit 0 means unread, surfaced 1 means
// read).
func (t *mailTranscoder) List(sess *Session, containerID int64, cutoff int64) ([]model.ItemStat, error) {
	msgs, err := t.e.db.ListMessages(sess.UserID(), containerID, cutoff)
	if err != nil {
		return nil, err
	}
	stats := make([]model.ItemStat, 0, len(msgs))
	for _, msg := range msgs {
		stats = append(stats, model.ItemStat{
			ID:   msg.ID,
			Mod:  msg.Received,
			Flag: readFlag(msg.Flags),
		})
	}
	return stats, nil
}

func (t *mailTranscoder) Stat(sess *Session, itemID int64) (*model.ItemStat, error) {
	msg, err := t.e.db.FindMessage(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	return &model.ItemStat{ID: msg.ID, Mod: msg.Received, Flag: readFlag(msg.Flags)}, nil
}

func readFlag(flags int) int {
	if flags&model.MessageFlagUnread != 0 {
		return 0
	}
	return 1
}

func (t *mailTranscoder) Fetch(sess *Session, itemID int64, opts RenderOptions) (Item, error) {
	msg, err := t.e.db.FindMessage(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNotFound
	}

	raw, err := t.e.loadRawMessage(sess, msg)
	if err != nil {
		return nil, err
	}
	entity, err := parseMessage(raw)
	if err != nil {
		return nil, err
	}

	item := &MailItem{
		ID:          msg.ID,
		Subject:     msg.Subject,
		From:        msg.From,
		To:          msg.To,
		Cc:          msg.Cc,
		ReplyTo:     entity.Header.Get("Reply-To"),
		Date:        msg.DateSent,
		Read:        msg.Flags&model.MessageFlagUnread == 0,
		Importance:  importanceFromPriority(msg.Priority),
		MessageID:   msg.MessageID,
		ThreadTopic: threadTopic(msg.Subject),
		Attachments: collectAttachments(entity, msg.ID),
	}

	plain, htmlBody := extractBodies(entity)
	item.NativeBodyType = BodyTypePlain
	if plain == "" && htmlBody != "" {
		item.NativeBodyType = BodyTypeHTML
	}

	bodyType, bodyData := negotiateBody(opts, plain, htmlBody, raw)
	data, truncated := truncateUTF8(bodyData, opts.TruncationLimit)

	if opts.ProtocolVersion >= structuredBodyVersion {
		item.Body = &Body{
			Type:          bodyType,
			Data:          data,
			EstimatedSize: len(bodyData),
			Truncated:     truncated,
		}
	} else if bodyType == BodyTypeMIME {
		item.MIMEData = data
		item.MIMETruncated = truncated
	} else {
		item.PlainBody = data
		item.PlainTruncated = truncated
	}
	return item, nil
}

// negotiateBody walks the device's ranked body preferences and picks the
// first form the message can be rendered in. Rich text is never
// produced. When plain text is wanted but only HTML is stored, the HTML
// is downgraded.
func negotiateBody(opts RenderOptions, plain, htmlBody string, raw []byte) (BodyType, string) {
	prefs := opts.BodyPreference
	if opts.ProtocolVersion < structuredBodyVersion || len(prefs) == 0 {
		// Legacy devices have no ranked preference list; the MIME
		// support flag alone decides.
		if opts.MIMESupport {
			return BodyTypeMIME, string(raw)
		}
		prefs = []BodyType{BodyTypePlain}
	}
	for _, pref := range prefs {
		switch pref {
		case BodyTypeMIME:
			if opts.MIMESupport {
				return BodyTypeMIME, string(raw)
			}
		case BodyTypeHTML:
			if htmlBody != "" {
				return BodyTypeHTML, htmlBody
			}
		case BodyTypePlain:
			return BodyTypePlain, plainOrDowngraded(plain, htmlBody)
		}
	}
	return BodyTypePlain, plainOrDowngraded(plain, htmlBody)
}

func plainOrDowngraded(plain, htmlBody string) string {
	if plain == "" && htmlBody != "" {
		return htmlToText(htmlBody)
	}
	return plain
}

// threadTopic strips reply/forward prefixes off a subject.
func threadTopic(subject string) string {
	s := subject
	for {
		trimmed := strings.TrimSpace(s)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "re:"):
			s = trimmed[3:]
		case strings.HasPrefix(lower, "fwd:"):
			s = trimmed[4:]
		case strings.HasPrefix(lower, "fw:"):
			s = trimmed[3:]
		default:
			return trimmed
		}
	}
}

// Apply is unsupported for mail: messages enter the store through
// delivery or SendMail, never through sync item upload.
func (t *mailTranscoder) Apply(sess *Session, containerID, itemID int64, item Item) (int64, error) {
	return 0, ErrUnsupported
}

// Delete removes the message row, releases its quota and drops any
// externalized blob. Row mutation happens before the blob side effect.
func (t *mailTranscoder) Delete(sess *Session, itemID int64) (bool, error) {
	msg, err := t.e.db.DeleteMessage(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	if msg.Body == model.BodyExternal {
		if err := sess.Blobs.Delete(blob.KindMail, msg.ID); err != nil {
			t.e.logger.Error("deleting message blob", "message", msg.ID, "error", err)
		}
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// Move reassigns the message to another mail folder. A move into the
// trash records the trash timestamp.
func (t *mailTranscoder) Move(sess *Session, itemID, newContainerID int64) (bool, error) {
	msg, err := t.e.db.FindMessage(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	if !isSystemMailFolder(newContainerID) && newContainerID != model.FolderInbox {
		target, err := t.e.db.FindMailFolder(sess.UserID(), newContainerID)
		if err != nil {
			return false, err
		}
		if target == nil {
			return false, nil
		}
	}
	now := t.e.clock.Now().Unix()
	if err := t.e.db.MoveMessage(sess.UserID(), itemID, newContainerID, now); err != nil {
		return false, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// setReadFlag flips the unread bit. It is a pure bit flip; the only
// other side effect is the content generation bump.
func (t *mailTranscoder) setReadFlag(sess *Session, itemID int64, read bool) (bool, error) {
	msg, err := t.e.db.FindMessage(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	flags := msg.Flags
	if read {
		flags &^= model.MessageFlagUnread
	} else {
		flags |= model.MessageFlagUnread
	}
	if flags != msg.Flags {
		if err := t.e.db.UpdateMessageFlags(sess.UserID(), itemID, flags); err != nil {
			return false, err
		}
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// loadRawMessage returns the full raw payload of a message, reading the
// blob store when the body was externalized. A blob read failure is
// logged and surfaced as not found.
func (e *Engine) loadRawMessage(sess *Session, msg *model.Message) ([]byte, error) {
	if msg.Body != model.BodyExternal {
		return []byte(msg.Body), nil
	}
	rc, err := sess.Blobs.Open(blob.KindMail, msg.ID)
	if err != nil {
		e.logger.Error("opening message blob", "message", msg.ID, "error", err)
		return nil, ErrNotFound
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		e.logger.Error("reading message blob", "message", msg.ID, "error", err)
		return nil, ErrNotFound
	}
	return raw, nil
}

// SendMail validates and delivers a raw MIME payload composed on the
// device, then persists an outbox copy subject to remaining quota. On
// any validation rejection or transport failure nothing is persisted.
func (e *Engine) SendMail(sess *Session, raw []byte) error {
	now := e.clock.Now().Unix()

	if sess.Group.SendInterval > 0 && now-sess.Account.LastSend < sess.Group.SendInterval {
		e.logger.Info("send rejected", "user", sess.UserID(), "reason", "frequency")
		return ErrSendThrottled
	}

	entity, err := parseMessage(raw)
	if err != nil {
		return err
	}
	hdr := mail.Header{Header: entity.Header}

	sender, err := senderAddress(hdr)
	if err != nil {
		return fmt.Errorf("reading sender: %w", err)
	}
	recipients := recipientAddresses(hdr)
	if len(recipients) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	if sess.Group.MaxRecipients > 0 && len(recipients) > sess.Group.MaxRecipients {
		e.logger.Info("send rejected", "user", sess.UserID(), "reason", "recipients",
			"count", len(recipients), "max", sess.Group.MaxRecipients)
		return ErrTooManyRecipients
	}

	allowed, err := e.possibleSenders(sess)
	if err != nil {
		return err
	}
	if !containsFold(allowed, sender) {
		e.logger.Info("send rejected", "user", sess.UserID(), "reason", "sender", "sender", sender)
		return ErrSenderMismatch
	}

	subject, _ := hdr.Subject()
	env := transport.Envelope{
		Sender:     sender,
		MailFrom:   sender,
		Recipients: recipients,
		Subject:    subject,
	}
	if err := e.transport.Send(env, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("delivering message: %w", err)
	}

	if err := e.db.RecordSend(sess.UserID(), now, len(recipients)); err != nil {
		return err
	}
	sess.Account.LastSend = now
	sess.Account.SentMails += int64(len(recipients))

	e.saveOutboxCopy(sess, entity, raw, sender, subject, now)
	return nil
}

// saveOutboxCopy persists the sent message in the sent folder. The copy
// is best-effort after a successful delivery: quota exhaustion skips it,
// and a blob write failure leaves the row in place.
func (e *Engine) saveOutboxCopy(sess *Session, entity *message.Entity, raw []byte, sender, subject string, now int64) {
	size := int64(len(raw))
	if err := e.checkQuota(sess, size); err != nil {
		e.logger.Info("outbox copy skipped", "user", sess.UserID(), "reason", err.Error())
		return
	}

	msgID, ok := extractMessageID(entity.Header.Get("Message-Id"))
	if !ok {
		msgID = "<" + e.idgen.New() + "@" + e.hostname + ">"
	}

	dateSent := now
	hdr := mail.Header{Header: entity.Header}
	if dt, err := hdr.Date(); err == nil && !dt.IsZero() {
		dateSent = dt.Unix()
	}

	flags := 0 // outbox copies are read
	if mediaType, _, err := entity.Header.ContentType(); err == nil && mediaType == "multipart/mixed" {
		flags |= model.MessageFlagAttachment
	}

	msg := &model.Message{
		UserID:     sess.UserID(),
		Subject:    subject,
		From:       sender,
		To:         entity.Header.Get("To"),
		Cc:         entity.Header.Get("Cc"),
		Folder:     model.FolderSent,
		DateSent:   dateSent,
		Received:   now,
		Priority:   priorityFromHeader(entity.Header.Get("X-Priority")),
		MessageID:  msgID,
		References: joinReferences(entity.Header.Get("References") + " " + entity.Header.Get("In-Reply-To")),
		Flags:      flags,
		Size:       size,
	}
	if size <= e.inlineLimit {
		msg.Body = string(raw)
	} else {
		msg.Body = model.BodyExternal
	}

	id, err := e.db.InsertMessage(msg)
	if err != nil {
		e.logger.Error("storing outbox copy", "user", sess.UserID(), "error", err)
		return
	}
	if msg.Body == model.BodyExternal {
		if _, err := sess.Blobs.Put(blob.KindMail, id, bytes.NewReader(raw)); err != nil {
			// The row stays; the body is simply unavailable until the
			// blob is rewritten.
			e.logger.Error("writing outbox blob", "message", id, "error", err)
		}
	}
	if err := e.db.AddSpaceUsed(sess.UserID(), size); err != nil {
		e.logger.Error("charging quota for outbox copy", "user", sess.UserID(), "error", err)
		return
	}
	sess.Account.SpaceUsed += size
	if err := e.db.BumpGeneration(sess.UserID()); err != nil {
		e.logger.Error("bumping generation", "user", sess.UserID(), "error", err)
	}
}

// checkQuota reports ErrQuotaExceeded when storing size more bytes would
// push the account past its group's storage limit. A zero limit means
// unlimited.
func (e *Engine) checkQuota(sess *Session, size int64) error {
	limit := sess.Group.StorageLimit
	if limit > 0 && sess.Account.SpaceUsed+size > limit {
		return ErrQuotaExceeded
	}
	return nil
}

// possibleSenders returns every address the account may send as: the
// primary address, active non-hidden aliases and the addresses of the
// workgroups the account belongs to.
func (e *Engine) possibleSenders(sess *Session) ([]string, error) {
	senders := []string{sess.Account.Email}

	aliases, err := e.db.FindAliases(sess.UserID())
	if err != nil {
		return nil, err
	}
	for _, alias := range aliases {
		if alias.Flags&model.AliasActive != 0 && alias.Flags&model.AliasHidden == 0 {
			senders = append(senders, alias.Email)
		}
	}

	wgAddrs, err := e.db.FindWorkgroupAddresses(sess.UserID())
	if err != nil {
		return nil, err
	}
	return append(senders, wgAddrs...), nil
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func senderAddress(hdr mail.Header) (string, error) {
	from, err := hdr.AddressList("From")
	if err != nil || len(from) == 0 {
		return "", fmt.Errorf("missing or malformed From header")
	}
	return from[0].Address, nil
}

// recipientAddresses collects the envelope recipients from the To, Cc
// and Bcc headers.
func recipientAddresses(hdr mail.Header) []string {
	var rcpts []string
	for _, field := range []string{"To", "Cc", "Bcc"} {
		addrs, err := hdr.AddressList(field)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			rcpts = append(rcpts, a.Address)
		}
	}
	return rcpts
}

// joinReferences flattens a References header into the stored form, the
// angle-bracketed IDs joined by ";;;".
func joinReferences(refs string) string {
	var ids []string
	rest := refs
	for {
		id, ok := extractMessageID(rest)
		if !ok {
			break
		}
		ids = append(ids, id)
		rest = rest[strings.Index(rest, id)+len(id):]
	}
	return strings.Join(ids, ";;;")
}

// FetchAttachment retrieves one MIME part of a stored message by its
// composite reference.
func (e *Engine) FetchAttachment(sess *Session, ref string) (io.ReadCloser, string, error) {
	messageID, partIndex, ok := ParseAttachmentRef(ref)
	if !ok {
		return nil, "", ErrNotFound
	}
	msg, err := e.db.FindMessage(sess.UserID(), messageID)
	if err != nil {
		return nil, "", err
	}
	if msg == nil {
		return nil, "", ErrNotFound
	}
	raw, err := e.loadRawMessage(sess, msg)
	if err != nil {
		return nil, "", err
	}
	entity, err := parseMessage(raw)
	if err != nil {
		return nil, "", err
	}
	data, contentType, found := openPart(entity, partIndex)
	if !found {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), contentType, nil
}
