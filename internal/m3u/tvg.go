package m3u

import (
	"fmt"
	"io"
	"strings"
)

type TVGTags struct {
	ID         string
	Name       string
	Logo       string
	GroupTitle string
}

func (t *TVGTags) encode(w io.Writer) error {
	attrs := make([]string, 0, 4)

	if t.ID != "" {
		attrs = append(attrs, fmt.Sprintf("tvg-id=%q", t.ID))
	}
	if t.Name != "" {
		attrs = append(attrs, fmt.Sprintf("tvg-name=%q", t.Name))
	}
	if t.Logo != "" {
		attrs = append(attrs, fmt.Sprintf("tvg-logo=%q", t.Logo))
	}
	if t.GroupTitle != "" {
		attrs = append(attrs, fmt.Sprintf("group-title=%q", t.GroupTitle))
	}

	_, err := io.WriteString(w, strings.Join(attrs, " "))
	return err
}
