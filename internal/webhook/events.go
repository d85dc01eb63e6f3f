package webhook

// Payload is the body of a Messenger webhook POST.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the events of one page.
type Entry struct {
	ID        string  `json:"id"`
	Time      int64   `json:"time"`
	Messaging []Event `json:"messaging"`
}

type Party struct {
	ID string `json:"id"`
}

// Event is one messaging event. At most one of Message, Postback and a
// standalone Referral is usually set.
type Event struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
	Referral  *Referral `json:"referral,omitempty"`
}

type Message struct {
	MID        string      `json:"mid"`
	Text       string      `json:"text"`
	IsEcho     bool        `json:"is_echo"`
	QuickReply *QuickReply `json:"quick_reply,omitempty"`
	Referral   *Referral   `json:"referral,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type Postback struct {
	Title    string    `json:"title"`
	Payload  string    `json:"payload"`
	Referral *Referral `json:"referral,omitempty"`
}

type Referral struct {
	Ref    string `json:"ref"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// Event kinds used for logs and metrics.
const (
	KindEcho     = "echo"
	KindReferral = "referral"
	KindPostback = "postback"
	KindMessage  = "message"
	KindOther    = "other"
)

func (e Event) Kind() string {
	switch {
	case e.Message != nil && e.Message.IsEcho:
		return KindEcho
	case e.Postback != nil:
		return KindPostback
	case e.Message != nil:
		return KindMessage
	case e.Referral != nil:
		return KindReferral
	default:
		return KindOther
	}
}

// Ref returns the first non-empty referral ref, looking at the top-level
// referral, then the message, then the postback.
func (e Event) Ref() string {
	refs := make([]*Referral, 0, 3)
	refs = append(refs, e.Referral)
	if e.Message != nil {
		refs = append(refs, e.Message.Referral)
	}
	if e.Postback != nil {
		refs = append(refs, e.Postback.Referral)
	}
	for _, r := range refs {
		if r != nil && r.Ref != "" {
			return r.Ref
		}
	}
	return ""
}

// Text is the typed text of a message event.
func (e Event) Text() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Text
}

// Payload is the postback or quick-reply payload, which the bot treats alike.
func (e Event) Payload() string {
	if e.Postback != nil {
		return e.Postback.Payload
	}
	if e.Message != nil && e.Message.QuickReply != nil {
		return e.Message.QuickReply.Payload
	}
	return ""
}
