package normalize

// Kind tags the payload variant of a tool response.
type Kind int

const (
	// KindStructured means the tool returned a single structured object.
	KindStructured Kind = iota
	// KindContentBlocks means the tool returned a list of typed content
	// blocks, one of which may carry a JSON document as text.
	KindContentBlocks
)

// Block is one typed unit of a content-block payload.
type Block struct {
	Type string
	Text string
}

// Envelope is the raw reply from a tool invocation, before extraction.
// Exactly one variant is populated, selected by Kind.
type Envelope struct {
	Kind       Kind
	Structured map[string]any
	Blocks     []Block
}

// StructuredEnvelope wraps an already-decoded object payload.
func StructuredEnvelope(payload map[string]any) Envelope {
	return Envelope{Kind: KindStructured, Structured: payload}
}

// BlockEnvelope wraps a content-block payload.
func BlockEnvelope(blocks ...Block) Envelope {
	return Envelope{Kind: KindContentBlocks, Blocks: blocks}
}
