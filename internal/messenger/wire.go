package messenger

type sendRequest struct {
	Recipient     wireRecipient `json:"recipient"`
	MessagingType string        `json:"messaging_type"`
	Message       wireMessage   `json:"message"`
}

type wireRecipient struct {
	ID string `json:"id"`
}

type wireMessage struct {
	Text         string           `json:"text,omitempty"`
	Attachment   *wireAttachment  `json:"attachment,omitempty"`
	QuickReplies []wireQuickReply `json:"quick_replies,omitempty"`
}

type wireQuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type wireAttachment struct {
	Type    string      `json:"type"`
	Payload wirePayload `json:"payload"`
}

type wirePayload struct {
	TemplateType string        `json:"template_type,omitempty"`
	Text         string        `json:"text,omitempty"`
	Buttons      []wireButton  `json:"buttons,omitempty"`
	Elements     []wireElement `json:"elements,omitempty"`
	URL          string        `json:"url,omitempty"`
	IsReusable   bool          `json:"is_reusable,omitempty"`
}

type wireButton struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

type wireElement struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle,omitempty"`
	ImageURL string       `json:"image_url,omitempty"`
	Buttons  []wireButton `json:"buttons,omitempty"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// toWire renders an already bounded message.
func toWire(psid string, m Message) sendRequest {
	req := sendRequest{
		Recipient:     wireRecipient{ID: psid},
		MessagingType: "RESPONSE",
	}

	switch m.Kind() {
	case KindCards:
		elements := make([]wireElement, 0, len(m.Cards))
		for _, c := range m.Cards {
			elements = append(elements, wireElement{
				Title:    c.Title,
				Subtitle: c.Subtitle,
				ImageURL: c.ImageURL,
				Buttons:  wireButtons(c.Buttons),
			})
		}
		req.Message.Attachment = &wireAttachment{
			Type:    "template",
			Payload: wirePayload{TemplateType: "generic", Elements: elements},
		}
	case KindButtons:
		req.Message.Attachment = &wireAttachment{
			Type:    "template",
			Payload: wirePayload{TemplateType: "button", Text: m.Text, Buttons: wireButtons(m.Buttons)},
		}
	case KindImage:
		req.Message.Attachment = &wireAttachment{
			Type:    "image",
			Payload: wirePayload{URL: m.ImageURL, IsReusable: true},
		}
	default:
		req.Message.Text = m.Text
	}

	for _, q := range m.QuickReplies {
		req.Message.QuickReplies = append(req.Message.QuickReplies, wireQuickReply{
			ContentType: "text",
			Title:       q.Title,
			Payload:     q.Payload,
		})
	}
	return req
}

func wireButtons(buttons []Button) []wireButton {
	out := make([]wireButton, 0, len(buttons))
	for _, b := range buttons {
		if b.URL != "" {
			out = append(out, wireButton{Type: "web_url", Title: b.Title, URL: b.URL})
			continue
		}
		out = append(out, wireButton{Type: "postback", Title: b.Title, Payload: b.Payload})
	}
	return out
}
