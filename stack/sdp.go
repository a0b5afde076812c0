package stack

import (
	"strconv"
	"time"

	"braces.dev/errtrace"
	"github.com/pion/sdp/v3"
)

// ContentTypeSDP is the MIME type of session description bodies.
const ContentTypeSDP = "application/sdp"

// MediaConfig describes the local media endpoint advertised in
// offers and answers.
type MediaConfig struct {
	// Host is the local media address.
	Host string
	// Port is the local RTP port.
	Port int
	// PayloadTypes lists the advertised audio payload types, keyed to
	// [rtpmaps]. If empty, PCMU/PCMA are offered.
	PayloadTypes []uint8
}

var rtpmaps = map[uint8]string{
	0: "PCMU/8000",
	8: "PCMA/8000",
}

func (c MediaConfig) payloadTypes() []uint8 {
	if len(c.PayloadTypes) == 0 {
		return []uint8{0, 8}
	}
	return c.PayloadTypes
}

// NewOffer builds a session description offer body.
func NewOffer(c MediaConfig) (Body, error) {
	return errtrace.Wrap2(marshalSession(buildSession(c, c.payloadTypes())))
}

// NewAnswer builds an answer to a remote offer: the first mutually
// supported payload type wins, local addressing comes from c.
func NewAnswer(c MediaConfig, offer Body) (Body, error) {
	remote, err := ParseSession(offer)
	if err != nil {
		return Body{}, errtrace.Wrap(err)
	}

	var formats []uint8
	for _, md := range remote.MediaDescriptions {
		if md.MediaName.Media != "audio" {
			continue
		}
		for _, f := range md.MediaName.Formats {
			pt, err := strconv.Atoi(f)
			if err != nil {
				continue
			}
			for _, local := range c.payloadTypes() {
				if uint8(pt) == local {
					formats = append(formats, local)
				}
			}
		}
	}
	if len(formats) == 0 {
		formats = c.payloadTypes()
	}
	return errtrace.Wrap2(marshalSession(buildSession(c, formats[:1])))
}

// ParseSession parses a session description body.
func ParseSession(body Body) (*sdp.SessionDescription, error) {
	sd := new(sdp.SessionDescription)
	if err := sd.Unmarshal(body.Content); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return sd, nil
}

func buildSession(c MediaConfig, formats []uint8) *sdp.SessionDescription {
	now := uint64(time.Now().Unix())

	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:  "audio",
			Port:   sdp.RangedPort{Value: c.Port},
			Protos: []string{"RTP", "AVP"},
		},
	}
	for _, pt := range formats {
		media.MediaName.Formats = append(media.MediaName.Formats, strconv.Itoa(int(pt)))
		if rtpmap, ok := rtpmaps[pt]; ok {
			media.Attributes = append(media.Attributes,
				sdp.NewAttribute("rtpmap", strconv.Itoa(int(pt))+" "+rtpmap))
		}
	}
	media.Attributes = append(media.Attributes, sdp.NewPropertyAttribute("sendrecv"))

	return &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      now,
			SessionVersion: now,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: c.Host,
		},
		SessionName: "gophone",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: c.Host},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{}}},
		MediaDescriptions: []*sdp.MediaDescription{
			media,
		},
	}
}

func marshalSession(sd *sdp.SessionDescription) (Body, error) {
	raw, err := sd.Marshal()
	if err != nil {
		return Body{}, errtrace.Wrap(err)
	}
	return Body{ContentType: ContentTypeSDP, Content: raw}, nil
}
