package stack

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func remoteOffer(formats string, attrs ...string) Body {
	lines := []string{
		"v=0",
		"o=- 1 1 IN IP4 198.51.100.7",
		"s=-",
		"c=IN IP4 198.51.100.7",
		"t=0 0",
		"m=audio 5004 RTP/AVP " + formats,
	}
	lines = append(lines, attrs...)
	return Body{
		ContentType: ContentTypeSDP,
		Content:     []byte(strings.Join(lines, "\r\n") + "\r\n"),
	}
}

func TestNewOffer(t *testing.T) {
	t.Parallel()

	body, err := NewOffer(MediaConfig{Host: "192.0.2.10", Port: 4000})
	if err != nil {
		t.Fatalf("NewOffer() err = %v", err)
	}
	if body.ContentType != ContentTypeSDP {
		t.Errorf("ContentType = %q, want %q", body.ContentType, ContentTypeSDP)
	}

	sd, err := ParseSession(body)
	if err != nil {
		t.Fatalf("ParseSession() err = %v", err)
	}
	if len(sd.MediaDescriptions) != 1 {
		t.Fatalf("media descriptions = %d, want 1", len(sd.MediaDescriptions))
	}
	md := sd.MediaDescriptions[0]
	if md.MediaName.Media != "audio" || md.MediaName.Port.Value != 4000 {
		t.Errorf("media = %s:%d, want audio:4000", md.MediaName.Media, md.MediaName.Port.Value)
	}
	if diff := cmp.Diff([]string{"0", "8"}, md.MediaName.Formats); diff != "" {
		t.Errorf("formats mismatch (-want +got):\n%s", diff)
	}
	if sd.ConnectionInformation == nil || sd.ConnectionInformation.Address.Address != "192.0.2.10" {
		t.Errorf("connection = %v, want 192.0.2.10", sd.ConnectionInformation)
	}
}

func TestNewAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		offer Body
		want  []string
	}{
		{
			name:  "remote preference wins",
			offer: remoteOffer("8 0", "a=rtpmap:8 PCMA/8000", "a=rtpmap:0 PCMU/8000"),
			want:  []string{"8"},
		},
		{
			name:  "single common format",
			offer: remoteOffer("96 0", "a=rtpmap:96 opus/48000/2"),
			want:  []string{"0"},
		},
		{
			name:  "no common format falls back to local",
			offer: remoteOffer("96", "a=rtpmap:96 opus/48000/2"),
			want:  []string{"0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, err := NewAnswer(MediaConfig{Host: "192.0.2.10", Port: 4000}, tt.offer)
			if err != nil {
				t.Fatalf("NewAnswer() err = %v", err)
			}
			sd, err := ParseSession(body)
			if err != nil {
				t.Fatalf("ParseSession() err = %v", err)
			}
			if diff := cmp.Diff(tt.want, sd.MediaDescriptions[0].MediaName.Formats); diff != "" {
				t.Errorf("formats mismatch (-want +got):\n%s", diff)
			}
			if sd.ConnectionInformation.Address.Address != "192.0.2.10" {
				t.Errorf("connection = %q, want local host", sd.ConnectionInformation.Address.Address)
			}
		})
	}
}

func TestParseSessionInvalid(t *testing.T) {
	t.Parallel()

	if _, err := ParseSession(Body{Content: []byte("not an sdp body")}); err == nil {
		t.Error("ParseSession() err = nil, want error")
	}
}
