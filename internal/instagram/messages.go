package instagram

// Message is the provider-shaped message body. Each delivery tier builds
// one of these; the wire shape varies per tier.
type Message map[string]interface{}

// Button is one actionable button inside a template
type Button map[string]interface{}

// URLButton opens a link in the recipient's browser
func URLButton(title, url string) Button {
	return Button{"type": "web_url", "title": title, "url": url}
}

// PostbackButton sends a callback payload back through the webhook when
// tapped. Not all client versions render these.
func PostbackButton(title, payload string) Button {
	return Button{"type": "postback", "title": title, "payload": payload}
}

// GenericTemplate is the rich card: title, subtitle, image and one button
func GenericTemplate(title, subtitle, imageURL string, button Button) Message {
	element := map[string]interface{}{
		"title":   title,
		"buttons": []Button{button},
	}
	if subtitle != "" {
		element["subtitle"] = subtitle
	}
	if imageURL != "" {
		element["image_url"] = imageURL
	}
	return Message{
		"attachment": map[string]interface{}{
			"type": "template",
			"payload": map[string]interface{}{
				"template_type": "generic",
				"elements":      []map[string]interface{}{element},
			},
		},
	}
}

// ButtonTemplate is a plain text body with one button
func ButtonTemplate(text string, button Button) Message {
	return Message{
		"attachment": map[string]interface{}{
			"type": "template",
			"payload": map[string]interface{}{
				"template_type": "button",
				"text":          text,
				"buttons":       []Button{button},
			},
		},
	}
}

// QuickReplies carries the callback payload as inline chips instead of a
// persistent button
func QuickReplies(text, title, payload string) Message {
	return Message{
		"text": text,
		"quick_replies": []map[string]interface{}{
			{
				"content_type": "text",
				"title":        title,
				"payload":      payload,
			},
		},
	}
}

// Text is the last-resort plain text message
func Text(text string) Message {
	return Message{"text": text}
}
