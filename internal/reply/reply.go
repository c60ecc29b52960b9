// Package reply defines the outbound reply pair handed back to the host
// runtime.
package reply

// Kind classifies the reply payload.
type Kind string

const (
	KindText  Kind = "TEXT"
	KindImage Kind = "IMAGE"
	KindInfo  Kind = "INFO"
	KindError Kind = "ERROR"
)

// Reply is one outbound reply. Image is set only for KindImage.
type Reply struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text,omitempty"`
	Image []byte `json:"image,omitempty"`
}

// Text builds a TEXT reply.
func Text(text string) Reply { return Reply{Kind: KindText, Text: text} }

// Info builds an INFO reply.
func Info(text string) Reply { return Reply{Kind: KindInfo, Text: text} }

// Error builds an ERROR reply.
func Error(text string) Reply { return Reply{Kind: KindError, Text: text} }

// Image builds an IMAGE reply.
func Image(data []byte) Reply { return Reply{Kind: KindImage, Image: data} }
