package bot

import (
	"strings"
)

// Field is one titled entry of a structured reply.
type Field struct {
	Name  string
	Value string
}

// Response is a reply to the invoking user. Platforms with rich messages
// render Title and Fields as an embed.
type Response struct {
	Title     string
	Text      string
	Fields    []Field
	Ephemeral bool
}

func textResponse(text string) Response {
	return Response{Text: text}
}

// Empty reports whether there is nothing to send.
func (r Response) Empty() bool {
	return r.Title == "" && r.Text == "" && len(r.Fields) == 0
}

// String renders the response as plain text.
func (r Response) String() string {
	var b strings.Builder
	if r.Title != "" {
		b.WriteString(r.Title)
		b.WriteByte('\n')
	}
	if r.Text != "" {
		b.WriteString(r.Text)
		b.WriteByte('\n')
	}
	for _, f := range r.Fields {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	return b.String()
}
