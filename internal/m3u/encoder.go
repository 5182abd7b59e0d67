package m3u

import (
	"fmt"
	"io"
)

// Track is one playlist entry to be written by the Encoder.
type Track struct {
	Name    string
	URI     string
	TVGTags *TVGTags
}

func (t *Track) encode(w io.Writer) error {
	if _, err := io.WriteString(w, "#EXTINF:-1"); err != nil {
		return err
	}

	if t.TVGTags != nil {
		if _, err := w.Write([]byte(" ")); err != nil {
			return err
		}
		if err := t.TVGTags.encode(w); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, ",%s\n%s\n", t.Name, t.URI); err != nil {
		return err
	}

	return nil
}

type encoder struct {
	items []*Track
}

// NewEncoder creates an M3U playlist encoder.
func NewEncoder() *encoder {
	return &encoder{items: []*Track{}}
}

func (p *encoder) AddTrack(item *Track) {
	p.items = append(p.items, item)
}

func (p *encoder) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, "#EXTM3U\n"); err != nil {
		return err
	}

	for _, item := range p.items {
		if err := item.encode(w); err != nil {
			return err
		}
	}

	return nil
}
