package engine

import "groupsync/internal/model"

// BodyType enumerates the body encodings negotiated with the host
// driver. The numeric values are the protocol's own and must not change.
type BodyType int

const (
	BodyTypePlain BodyType = 1
	BodyTypeHTML  BodyType = 2
	BodyTypeRTF   BodyType = 3 // never produced
	BodyTypeMIME  BodyType = 4
)

// RenderOptions carries the per-request content rendering parameters
// declared by the host driver.
type RenderOptions struct {
	// BodyPreference is the ranked list of body types the device
	// accepts. Empty means plain text.
	BodyPreference []BodyType
	// MIMESupport permits raw MIME passthrough.
	MIMESupport bool
	// TruncationLimit caps the rendered body size in bytes; zero or
	// negative means unlimited.
	TruncationLimit int
	// ProtocolVersion selects between the legacy flat body fields and
	// the structured body object (threshold 12.0).
	ProtocolVersion float64
}

// structuredBodyVersion is the protocol tier at which the structured
// body object replaces the legacy flat fields.
const structuredBodyVersion = 12.0

// Body is the structured body object used by protocol versions >= 12.0.
type Body struct {
	Type          BodyType
	Data          string
	EstimatedSize int
	Truncated     bool
}

// Importance is the three-level priority shared by mail and tasks.
// The numeric values are the protocol's.
type Importance int

const (
	ImportanceLow    Importance = 0
	ImportanceNormal Importance = 1
	ImportanceHigh   Importance = 2
)

// importanceFromPriority maps the stored priority word to the protocol
// level. Unknown words fall back to low.
func importanceFromPriority(priority string) Importance {
	switch priority {
	case "high":
		return ImportanceHigh
	case "normal":
		return ImportanceNormal
	default:
		return ImportanceLow
	}
}

func priorityFromImportance(imp Importance) string {
	switch imp {
	case ImportanceHigh:
		return "high"
	case ImportanceNormal:
		return "normal"
	default:
		return "low"
	}
}

// Item is the protocol-neutral representation handed across the host
// boundary. Exactly one concrete type exists per domain.
type Item interface {
	itemDomain() Domain
}

// Attachment describes one MIME part surfaced for on-demand retrieval.
// Ref is the composite "{messageId}:{partId}" reference, a compatibility
// surface for in-flight fetch requests.
type Attachment struct {
	Ref         string
	Name        string
	ContentType string
	Size        int
	Inline      bool
}

// MailItem is the protocol-neutral form of a message.
type MailItem struct {
	ID          int64
	Subject     string
	From        string
	To          string
	Cc          string
	ReplyTo     string
	Date        int64
	Read        bool
	Importance  Importance
	MessageID   string
	ThreadTopic string

	// NativeBodyType records what the stored body actually is, even
	// when the surfaced body was downgraded.
	NativeBodyType BodyType

	// Body is set for protocol versions >= 12.0.
	Body *Body
	// Legacy flat fields, set for older protocol versions.
	PlainBody      string
	PlainTruncated bool
	MIMEData       string
	MIMETruncated  bool

	Attachments []Attachment
}

func (*MailItem) itemDomain() Domain { return DomainMail }

// RecurrenceType enumerates the supported recurrence patterns.
type RecurrenceType int

const (
	RecurDaily RecurrenceType = iota
	RecurWeekly
	RecurMonthlyDay
	RecurMonthlyWeekday
)

// Weekday bitmask used by weekly and monthly-by-weekday recurrences,
// protocol convention: Sunday = 1 << 0 through Saturday = 1 << 6.
const WeekdayMaskAll = 0x7f

// Recurrence is the protocol-neutral recurrence descriptor. Exactly one
// of Until and Occurrences may be set; both zero means no termination.
type Recurrence struct {
	Type        RecurrenceType
	Interval    int
	WeekdayMask int // weekly, monthly-by-weekday
	WeekOfMonth int // monthly-by-weekday, 1..5
	DayOfMonth  int // monthly-by-day, clamped to 1..31
	Until       int64
	Occurrences int
}

// EventItem is the protocol-neutral form of a calendar entry.
type EventItem struct {
	ID       int64
	Subject  string
	Location string
	Body     string
	Start    int64
	End      int64
	AllDay   bool
	// ReminderMinutes is the reminder offset before start; nil means no
	// reminder is surfaced.
	ReminderMinutes *int64
	Recurrence      *Recurrence
	Attendees       []model.Attendee
}

func (*EventItem) itemDomain() Domain { return DomainCalendar }

// TaskItem is the protocol-neutral form of a task.
type TaskItem struct {
	ID       int64
	Subject  string
	Body     string
	Complete bool
	// DateCompleted is set on fetch for completed tasks.
	DateCompleted int64
	Start         int64
	Due           int64
	Importance    Importance
}

func (*TaskItem) itemDomain() Domain { return DomainTask }

// ContactItem is the protocol-neutral form of an address book entry.
type ContactItem struct {
	ID        int64
	FirstName string
	LastName  string

	HomePhone   string
	HomeFax     string
	HomeStreet  string
	HomeCity    string
	HomeZip     string
	HomeCountry string

	WorkStreet  string
	WorkZip     string
	WorkCity    string
	WorkCountry string
	WorkEmail   string
	WorkPhone   string
	WorkFax     string
	WorkMobile  string

	Email    string
	Web      string
	Mobile   string
	Company  string
	JobTitle string
	Birthday int64
	Notes    string

	Photo     []byte
	PhotoType string
}

func (*ContactItem) itemDomain() Domain { return DomainContact }
