package submit

import "strings"

// Line is one labelled row of the response panel
type Line struct {
	Label string
	Text  string
}

// Response is what the response panel shows after a submission
type Response struct {
	Lines   []Line
	Error   string
	Pending bool
}

// Panel displays responses and owns the text input
type Panel interface {
	Show(Response)
	ClearInput()
}

func pending(msg string) Response {
	return Response{Lines: []Line{{Text: msg}}, Pending: true}
}

func failed(msg string) Response {
	return Response{Error: msg}
}

// String renders the response as plain text, one line per row
func (r Response) String() string {
	if r.Error != "" {
		return r.Error
	}
	rows := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Label == "" {
			rows = append(rows, l.Text)
			continue
		}
		rows = append(rows, l.Label+" "+l.Text)
	}
	return strings.Join(rows, "\n")
}
