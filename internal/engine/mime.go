package engine

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // register common charsets
)

// parseMessage parses a raw MIME payload. Unknown charsets degrade to
// the undecoded bytes instead of failing the whole message.
func parseMessage(raw []byte) (*message.Entity, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return entity, nil
}

// extractBodies walks the part tree and returns the first text/plain and
// first text/html payloads found. Either may be empty.
func extractBodies(entity *message.Entity) (plain, html string) {
	queue := []*message.Entity{entity}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		if mr := e.MultipartReader(); mr != nil {
			for {
				part, err := mr.NextPart()
				if err != nil {
					break
				}
				queue = append(queue, part)
			}
			continue
		}

		mediaType, _, err := e.Header.ContentType()
		if err != nil {
			continue
		}
		switch mediaType {
		case "text/plain", "":
			if plain == "" {
				plain = readPartString(e)
			}
		case "text/html":
			if html == "" {
				html = readPartString(e)
			}
		}
		if plain != "" && html != "" {
			return plain, html
		}
	}
	return plain, html
}

func readPartString(e *message.Entity) string {
	data, err := io.ReadAll(e.Body)
	if err != nil {
		return ""
	}
	return string(data)
}

// walkParts runs fn for every leaf part in depth-first order, recursing
// into nested multipart containers. Each leaf gets a stable sequential
// index; the same walk order backs both attachment enumeration and
// on-demand part retrieval, so the composite references stay valid.
func walkParts(entity *message.Entity, fn func(index int, part *message.Entity) bool) {
	next := 0
	walkPartsRec(entity, &next, fn)
}

func walkPartsRec(entity *message.Entity, next *int, fn func(int, *message.Entity) bool) bool {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				return true
			}
			mediaType, _, _ := part.Header.ContentType()
			switch mediaType {
			case "multipart/alternative", "multipart/mixed", "multipart/related":
				if !walkPartsRec(part, next, fn) {
					return false
				}
			default:
				index := *next
				*next++
				if !fn(index, part) {
					return false
				}
			}
		}
	}
	index := *next
	*next++
	return fn(index, entity)
}

// isAttachmentPart decides whether a leaf part is surfaced as an
// attachment: pure text parts are body material, and a part with an
// explicit disposition other than attachment or inline belongs to the
// message structure, not the attachment list.
func isAttachmentPart(part *message.Entity) (inline bool, ok bool) {
	mediaType, _, _ := part.Header.ContentType()
	if strings.HasPrefix(mediaType, "text/") || mediaType == "" {
		return false, false
	}
	disp, _, err := part.Header.ContentDisposition()
	if err == nil && disp != "" && disp != "attachment" && disp != "inline" {
		return false, false
	}
	return disp == "inline", true
}

// collectAttachments enumerates the attachment parts of a message.
func collectAttachments(entity *message.Entity, messageID int64) []Attachment {
	var atts []Attachment
	walkParts(entity, func(index int, part *message.Entity) bool {
		inline, ok := isAttachmentPart(part)
		if !ok {
			return true
		}
		mediaType, typeParams, _ := part.Header.ContentType()
		_, dispParams, _ := part.Header.ContentDisposition()

		name := dispParams["filename"]
		if name == "" {
			name = typeParams["name"]
		}
		if name == "" {
			name = fmt.Sprintf("attachment-%d", index)
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return true
		}
		atts = append(atts, Attachment{
			Ref:         FormatAttachmentRef(messageID, index),
			Name:        name,
			ContentType: mediaType,
			Size:        len(data),
			Inline:      inline,
		})
		return true
	})
	return atts
}

// openPart retrieves one leaf part of a message by its walk index.
func openPart(entity *message.Entity, wantIndex int) (data []byte, contentType string, found bool) {
	walkParts(entity, func(index int, part *message.Entity) bool {
		if index != wantIndex {
			return true
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return false
		}
		mediaType, _, _ := part.Header.ContentType()
		data = body
		contentType = mediaType
		found = true
		return false
	})
	return data, contentType, found
}

// FormatAttachmentRef renders the composite attachment reference.
// The "{messageId}:{partId}" format is persisted in in-flight fetch
// requests and must stay stable.
func FormatAttachmentRef(messageID int64, partIndex int) string {
	return fmt.Sprintf("%d:%d", messageID, partIndex)
}

// ParseAttachmentRef splits a composite attachment reference.
func ParseAttachmentRef(ref string) (messageID int64, partIndex int, ok bool) {
	i := strings.IndexByte(ref, ':')
	if i <= 0 {
		return 0, 0, false
	}
	messageID, err := strconv.ParseInt(ref[:i], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	partIndex, err = strconv.Atoi(ref[i+1:])
	if err != nil {
		return 0, 0, false
	}
	return messageID, partIndex, true
}

// extractMessageID pulls the first "<...>" token out of a Message-ID
// header value. ok is false when no angle-bracketed token exists.
func extractMessageID(header string) (string, bool) {
	start := strings.IndexByte(header, '<')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(header[start:], '>')
	if end < 0 {
		return "", false
	}
	return header[start : start+end+1], true
}

// priorityFromHeader maps an X-Priority header to the stored priority
// word: 1 is high, 5 is low, anything else (including a missing header)
// is normal.
func priorityFromHeader(xPriority string) string {
	switch strings.TrimSpace(strings.SplitN(xPriority, " ", 2)[0]) {
	case "1":
		return "high"
	case "5":
		return "low"
	default:
		return "normal"
	}
}
