package model

// Account is the per-user row holding credentials, quota usage and the
// generation counters polled by the sync host.
type Account struct {
	ID                  int64  `db:"id"`
	Email               string `db:"email"`
	PasswordHash        string `db:"password_hash"`
	PasswordSalt        string `db:"password_salt"`
	Locked              bool   `db:"locked"`
	GroupID             int64  `db:"group_id"`
	LastSend            int64  `db:"last_send"`
	SentMails           int64  `db:"sent_mails"`
	SpaceUsed           int64  `db:"space_used"`
	Generation          int64  `db:"generation"`
	StructureGeneration int64  `db:"structure_generation"`
}

// Group holds the plan/policy settings shared by all accounts of a group.
type Group struct {
	ID            int64  `db:"id"`
	Title         string `db:"title"`
	SyncAllowed   bool   `db:"sync_allowed"`
	SendInterval  int64  `db:"send_interval"`  // min seconds between sends
	MaxRecipients int    `db:"max_recipients"` // per message
	StorageLimit  int64  `db:"storage_limit"`  // bytes
}

// Alias flag bits (stored as-is from the account store).
const (
	AliasActive = 1
	AliasHidden = 4
)

// Alias is an additional address an account may send as.
type Alias struct {
	UserID int64  `db:"user_id"`
	Email  string `db:"email"`
	Flags  int    `db:"flags"`
}

// System mail folder IDs. These are fixed and have no folders row; user
// folders always get positive IDs.
const (
	FolderInbox  = 0
	FolderSent   = -2
	FolderDrafts = -3
	FolderSpam   = -4
	FolderTrash  = -5
)

// Message flag bits. Bit 0 set means UNREAD; bit 6 is the has-attachment
// hint set on outbox copies of multipart/mixed mail.
const (
	MessageFlagUnread     = 1
	MessageFlagAttachment = 64
)

// BodyExternal in the Body column marks a payload that lives in the blob
// store instead of the row.
const BodyExternal = "file"

// Message is the persisted header/metadata row of a mail.
type Message struct {
	ID         int64  `db:"id"`
	UserID     int64  `db:"user_id"`
	Subject    string `db:"subject"`
	From       string `db:"from_addr"`
	To         string `db:"to_addrs"`
	Cc         string `db:"cc_addrs"`
	Body       string `db:"body"`
	Folder     int64  `db:"folder"`
	DateSent   int64  `db:"date_sent"`
	Received   int64  `db:"received"`
	TrashStamp int64  `db:"trash_stamp"`
	Priority   string `db:"priority"` // "low", "normal", "high"
	MessageID  string `db:"msg_id"`
	References string `db:"refs"`
	Flags      int    `db:"flags"`
	Size       int64  `db:"size"`
}

// MailFolder is a user-created mail folder. System folders (inbox, sent,
// drafts, spam, trash) have fixed non-positive IDs and no row.
type MailFolder struct {
	ID         int64  `db:"id"`
	UserID     int64  `db:"user_id"`
	Title      string `db:"title"`
	Parent     int64  `db:"parent"`
	Subscribed bool   `db:"subscribed"`
	Smart      bool   `db:"smart"` // filter folders, not synced
}

// Calendar is a user-created calendar; the default calendar has no row.
type Calendar struct {
	ID     int64  `db:"id"`
	UserID int64  `db:"user_id"`
	Title  string `db:"title"`
}

// TaskList is a user-created task list; the default list has no row.
type TaskList struct {
	ID     int64  `db:"id"`
	UserID int64  `db:"user_id"`
	Title  string `db:"title"`
}

// Event flag bits.
const (
	EventFlagAllDay      = 1
	EventFlagRemindMail  = 2
	EventFlagRemindOther = 4
)

// Event recurrence flag bits stored in RepeatFlags.
const (
	RepeatTerminateCount = 2 // RepeatTimes holds occurrence count
	RepeatTerminateDate  = 4 // RepeatTimes holds until-date timestamp
	RepeatDaily          = 8
	RepeatWeekly         = 16
	RepeatMonthlyDay     = 32
	RepeatMonthlyWeekday = 64
)

// Event is a calendar entry. Recurrence is encoded in the Repeat* fields;
// what the extra columns mean depends on the recurrence kind.
type Event struct {
	ID           int64  `db:"id"`
	UserID       int64  `db:"user_id"`
	CalendarID   int64  `db:"calendar_id"` // -1 for the default calendar
	Title        string `db:"title"`
	Location     string `db:"location"`
	Body         string `db:"body"`
	Start        int64  `db:"start_ts"`
	End          int64  `db:"end_ts"`
	Reminder     int64  `db:"reminder"` // seconds before start
	Flags        int    `db:"flags"`
	RepeatFlags  int    `db:"repeat_flags"`
	RepeatTimes  int64  `db:"repeat_times"`
	RepeatValue  int64  `db:"repeat_value"`
	RepeatExtra1 string `db:"repeat_extra1"`
	RepeatExtra2 string `db:"repeat_extra2"`
}

// Attendee is a resolved event attendee, joined from the contact store.
type Attendee struct {
	Name  string
	Email string
}

// Task status values (stored).
const (
	TaskStatusOpen       = 1
	TaskStatusInProgress = 16
	TaskStatusComplete   = 64
)

// Task is a task-list entry.
type Task struct {
	ID         int64  `db:"id"`
	UserID     int64  `db:"user_id"`
	TaskListID int64  `db:"tasklist_id"`
	Status     int    `db:"status"`
	Start      int64  `db:"start_ts"`
	Due        int64  `db:"due_ts"`
	Priority   string `db:"priority"` // "low", "normal", "high"
	Title      string `db:"title"`
	Body       string `db:"body"`
}

// Contact is an address book entry with home and business field variants.
type Contact struct {
	ID          int64  `db:"id"`
	UserID      int64  `db:"user_id"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	HomePhone   string `db:"home_phone"`
	HomeFax     string `db:"home_fax"`
	HomeStreet  string `db:"home_street"`
	HomeCity    string `db:"home_city"`
	HomeZip     string `db:"home_zip"`
	HomeCountry string `db:"home_country"`
	WorkStreet  string `db:"work_street"`
	WorkZip     string `db:"work_zip"`
	WorkCity    string `db:"work_city"`
	WorkCountry string `db:"work_country"`
	WorkEmail   string `db:"work_email"`
	WorkPhone   string `db:"work_phone"`
	WorkFax     string `db:"work_fax"`
	WorkMobile  string `db:"work_mobile"`
	Email       string `db:"email"`
	Web         string `db:"web"`
	Mobile      string `db:"mobile"`
	Company     string `db:"company"`
	JobTitle    string `db:"job_title"`
	Birthday    int64  `db:"birthday"`
	// DefaultAddress selects the preferred mail address: 2 means the
	// work address wins over the home one.
	DefaultAddress int    `db:"default_address"`
	Picture        []byte `db:"picture"`
	PictureType    string `db:"picture_type"` // sniffed MIME type
	Notes          string `db:"notes"`
}

// Change-log item kinds. The integer values are persisted and shared with
// the rest of the suite, so they must not be reordered.
const (
	ChangeKindContact = 0
	ChangeKindEvent   = 1
	ChangeKindTask    = 2
)

// ChangeEntry is the per-item created/updated/deleted timestamp ledger row.
// There is at most one entry per (kind, item) for the item's lifetime.
type ChangeEntry struct {
	Kind    int   `db:"item_kind"`
	ItemID  int64 `db:"item_id"`
	UserID  int64 `db:"user_id"`
	Created int64 `db:"created"`
	Updated int64 `db:"updated"`
	Deleted int64 `db:"deleted"`
}

// ItemStat is the (id, modification marker, flag) triple returned by list
// and stat operations. For mail the flag carries the read state; for the
// other domains it is always 1.
type ItemStat struct {
	ID   int64
	Mod  int64
	Flag int
}
