package m3u

import (
	"errors"
	"testing"
)

func TestDecode_SingleEntry(t *testing.T) {
	content := "#EXTM3U\n#EXTINF:-1 tvg-id=\"cctv1\" group-title=\"News\",CCTV-1\nhttp://a.example/cctv1.m3u8\n"

	res, err := Decode(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}

	e := res.Entries[0]
	if e.Name != "CCTV-1" {
		t.Errorf("name = %q, want %q", e.Name, "CCTV-1")
	}
	if e.TVGID != "cctv1" {
		t.Errorf("tvg-id = %q, want %q", e.TVGID, "cctv1")
	}
	if e.GroupTitle != "News" {
		t.Errorf("group-title = %q, want %q", e.GroupTitle, "News")
	}
	if e.PrimaryURL != "http://a.example/cctv1.m3u8" {
		t.Errorf("primary url = %q", e.PrimaryURL)
	}
	if len(e.AlternateURLs) != 0 {
		t.Errorf("alternates = %v, want none", e.AlternateURLs)
	}
}

func TestDecode_MissingHeader(t *testing.T) {
	res, err := Decode("#EXTINF:-1,CCTV-1\nhttp://a.example/1.m3u8\n", "")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(res.Entries))
	}
}

func TestDecode_StripsBOMAndWhitespace(t *testing.T) {
	content := "\uFEFF  \n#EXTM3U\n#EXTINF:-1,One\nhttp://a.example/1.ts\n"
	res, err := Decode(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
}

func TestDecode_MultipleURLTokens(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1,Multi\n" +
		"http://a.example/1.m3u8;http://b.example/1.m3u8 udp://ignored rtmp://c.example/live\n"

	res, err := Decode(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}

	e := res.Entries[0]
	if e.PrimaryURL != "http://a.example/1.m3u8" {
		t.Errorf("primary = %q", e.PrimaryURL)
	}
	want := []string{"http://b.example/1.m3u8", "rtmp://c.example/live"}
	if len(e.AlternateURLs) != len(want) {
		t.Fatalf("alternates = %v, want %v", e.AlternateURLs, want)
	}
	for i := range want {
		if e.AlternateURLs[i] != want[i] {
			t.Errorf("alternates[%d] = %q, want %q", i, e.AlternateURLs[i], want[i])
		}
	}
}

func TestDecode_ResolvesRelativeURLs(t *testing.T) {
	content := "#EXTM3U\n#EXTINF:-1,Rel\nstreams/ch1.m3u8\n#EXTINF:-1,Abs\n/live/ch2.m3u8\n"

	res, err := Decode(content, "http://host.example/lists/all.m3u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
	if got := res.Entries[0].PrimaryURL; got != "http://host.example/lists/streams/ch1.m3u8" {
		t.Errorf("relative primary = %q", got)
	}
	if got := res.Entries[1].PrimaryURL; got != "http://host.example/live/ch2.m3u8" {
		t.Errorf("rooted primary = %q", got)
	}
}

func TestDecode_SkipsEntriesWithoutValidURL(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1,NoURL\n" +
		"udp://239.0.0.1:1234\n" +
		"#EXTINF:-1,Good\n" +
		"http://a.example/1.ts\n" +
		"#EXTINF:-1,Dangling\n"

	res, err := Decode(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	if res.Entries[0].Name != "Good" {
		t.Errorf("name = %q, want Good", res.Entries[0].Name)
	}
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}
}

func TestDecode_NameFallsBackToTVGName(t *testing.T) {
	content := "#EXTM3U\n#EXTINF:-1 tvg-name=\"Fallback\",\nhttp://a.example/1.ts\n"
	res, err := Decode(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	if res.Entries[0].Name != "Fallback" {
		t.Errorf("name = %q, want Fallback", res.Entries[0].Name)
	}
}

func TestDecode_IgnoresInterleavedComments(t *testing.T) {
	content := "#EXTM3U\n#EXTINF:-1,One\n#EXTVLCOPT:network-caching=1000\nhttp://a.example/1.ts\n"
	res, err := Decode(content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].PrimaryURL != "http://a.example/1.ts" {
		t.Fatalf("entries = %+v", res.Entries)
	}
}
