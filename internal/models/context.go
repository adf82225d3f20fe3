package models

// DefaultBufferSize is the receive buffer a binary trip query starts with.
const DefaultBufferSize = 384 * 1024

// PaginationContext is the opaque continuation handed back with a trip result
// and passed into the follow-up query for later or earlier trips.
type PaginationContext interface {
	CanQueryLater() bool
	CanQueryEarlier() bool
}

// XMLContext carries the ConResCtxt tokens of the XML trip endpoint.
type XMLContext struct {
	LaterToken     string `json:"laterToken,omitempty"`
	EarlierToken   string `json:"earlierToken,omitempty"`
	SequenceNumber int    `json:"sequenceNumber"`
}

func (c XMLContext) CanQueryLater() bool   { return c.LaterToken != "" }
func (c XMLContext) CanQueryEarlier() bool { return c.EarlierToken != "" }

// NextXMLContext threads a freshly received token into the context of the
// previous page. A nil prev starts a new search.
func NextXMLContext(prev *XMLContext, token string, later bool) XMLContext {
	if prev == nil {
		return XMLContext{LaterToken: token, EarlierToken: token}
	}
	if later {
		return XMLContext{
			LaterToken:     token,
			EarlierToken:   prev.EarlierToken,
			SequenceNumber: prev.SequenceNumber + 1,
		}
	}
	return XMLContext{
		LaterToken:     prev.LaterToken,
		EarlierToken:   token,
		SequenceNumber: prev.SequenceNumber + 1,
	}
}

// BinaryContext carries the continuation state of the binary trip endpoint.
type BinaryContext struct {
	RequestID      string `json:"requestId"`
	SequenceNumber int    `json:"sequenceNumber"`
	Marker         string `json:"marker,omitempty"`
	UsedBufferSize int    `json:"usedBufferSize"`
	CanScroll      bool   `json:"canScroll"`
}

func (c BinaryContext) CanQueryLater() bool   { return c.CanScroll }
func (c BinaryContext) CanQueryEarlier() bool { return c.CanScroll }

// NextBufferSize is the receive buffer to allocate for the follow-up request.
func (c BinaryContext) NextBufferSize() int {
	return DefaultBufferSize + c.UsedBufferSize
}
