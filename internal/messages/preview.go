package messages

import "fmt"

// Preview renders the one-line conversation list preview for a message.
func Preview(msg Message) string {
	switch msg.Type {
	case TypeText:
		return msg.Content.Body
	case TypeTemplate:
		if msg.Content.TemplateBody != "" {
			return msg.Content.TemplateBody
		}
		return fmt.Sprintf("[Template: %s]", msg.Content.TemplateName)
	case TypeImage:
		if msg.Content.Caption != "" {
			return msg.Content.Caption
		}
		return "[Image]"
	case TypeAudio:
		return "[Audio]"
	case TypeVideo:
		return "[Video]"
	case TypeDocument:
		filename := msg.Content.Filename
		if filename == "" {
			filename = "file"
		}
		return fmt.Sprintf("[Document: %s]", filename)
	default:
		return fmt.Sprintf("[%s]", msg.Type)
	}
}
