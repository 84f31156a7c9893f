package companion

// Speaker identifies which side of the conversation produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerCompanion Speaker = "companion"
)

// Mode selects how a single submission is serviced.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
	ModeLive  Mode = "live"
)

// Citation is a web reference substantiating part of a companion reply.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Turn is a single message in the transcript.
type Turn struct {
	Speaker   Speaker    `json:"speaker"`
	Text      string     `json:"text"`
	Image     []byte     `json:"image,omitempty"`
	ImageMIME string     `json:"imageMime,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// PayloadTurn is one entry of the outbound request to the inference endpoint.
type PayloadTurn struct {
	Role Speaker `json:"role"`
	Text string  `json:"text"`
}
