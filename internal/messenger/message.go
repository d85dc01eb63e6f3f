// Package messenger is the gateway to the Messenger Send API. It owns the
// outbound message model and enforces the platform payload caps before send.
package messenger

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Platform caps.
const (
	MaxQuickReplies   = 13
	MaxButtons        = 3
	MaxCards          = 10
	MaxCardButtons    = 3
	MaxQuickReplyText = 20
	MaxButtonTitle    = 20
	MaxCardTitle      = 80
	MaxCardSubtitle   = 80
	MaxButtonText     = 640
)

// Kind tags the outbound primitive a Message renders as.
type Kind string

const (
	KindText       Kind = "text"
	KindQuickReply Kind = "quick_replies"
	KindButtons    Kind = "buttons"
	KindCards      Kind = "cards"
	KindImage      Kind = "image"
)

type QuickReply struct {
	Title   string
	Payload string
}

// Button is a postback button, or a web_url button when URL is set.
type Button struct {
	Title   string
	Payload string
	URL     string
}

type Card struct {
	Title    string
	Subtitle string
	ImageURL string
	Buttons  []Button
}

// Message is one outbound message. Exactly one of Cards, Buttons, ImageURL or
// Text drives the rendering; QuickReplies may ride along with any of them.
type Message struct {
	Text         string
	QuickReplies []QuickReply
	Buttons      []Button
	Cards        []Card
	ImageURL     string
}

func Text(text string) Message {
	return Message{Text: text}
}

func QuickReplies(text string, options ...QuickReply) Message {
	return Message{Text: text, QuickReplies: options}
}

func ButtonTemplate(text string, buttons ...Button) Message {
	return Message{Text: text, Buttons: buttons}
}

func CardList(cards ...Card) Message {
	return Message{Cards: cards}
}

func Image(imageURL string) Message {
	return Message{ImageURL: imageURL}
}

func Postback(title, payload string) Button {
	return Button{Title: title, Payload: payload}
}

func Option(title, payload string) QuickReply {
	return QuickReply{Title: title, Payload: payload}
}

func (m Message) Kind() Kind {
	switch {
	case len(m.Cards) > 0:
		return KindCards
	case len(m.Buttons) > 0:
		return KindButtons
	case m.ImageURL != "":
		return KindImage
	case len(m.QuickReplies) > 0:
		return KindQuickReply
	default:
		return KindText
	}
}

// Bounded returns a copy with every platform cap applied.
func (m Message) Bounded() Message {
	out := Message{Text: m.Text, ImageURL: m.ImageURL}

	if n := len(m.QuickReplies); n > 0 {
		out.QuickReplies = make([]QuickReply, 0, min(n, MaxQuickReplies))
		for _, q := range m.QuickReplies[:min(n, MaxQuickReplies)] {
			out.QuickReplies = append(out.QuickReplies, QuickReply{Title: truncate(q.Title, MaxQuickReplyText), Payload: q.Payload})
		}
	}
	if n := len(m.Buttons); n > 0 {
		out.Buttons = boundButtons(m.Buttons, MaxButtons)
		out.Text = truncate(out.Text, MaxButtonText)
	}
	if n := len(m.Cards); n > 0 {
		out.Cards = make([]Card, 0, min(n, MaxCards))
		for _, c := range m.Cards[:min(n, MaxCards)] {
			bc := Card{
				Title:    truncate(c.Title, MaxCardTitle),
				Subtitle: truncate(c.Subtitle, MaxCardSubtitle),
				Buttons:  boundButtons(c.Buttons, MaxCardButtons),
			}
			if IsAbsoluteHTTPURL(c.ImageURL) {
				bc.ImageURL = c.ImageURL
			}
			out.Cards = append(out.Cards, bc)
		}
	}
	return out
}

func boundButtons(buttons []Button, limit int) []Button {
	if len(buttons) == 0 {
		return nil
	}
	n := min(len(buttons), limit)
	out := make([]Button, 0, n)
	for _, b := range buttons[:n] {
		out = append(out, Button{Title: truncate(b.Title, MaxButtonTitle), Payload: b.Payload, URL: b.URL})
	}
	return out
}

// IsAbsoluteHTTPURL reports whether s is an absolute http(s) URL with a host.
// Catalog images stored as relative paths are never sent.
func IsAbsoluteHTTPURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 1 {
		return string(r[:limit])
	}
	return string(r[:limit-1]) + "…"
}
