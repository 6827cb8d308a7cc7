package tom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotObject = errors.New("metadata is not a JSON object")

// Decoded TOM metadata
type Payload struct {
	// Treasury contract instance, empty if not present
	Instance string

	// Event type as written on chain, lowercased by ParseEventType
	Event string

	// Event body. Equals the whole payload when there's no "body" member
	Body Fields

	// Top level members
	Root Fields

	// Bytes the payload was parsed from
	Raw json.RawMessage
}

// Returns nil without an error for empty or null metadata
func Parse(raw []byte) (self *Payload, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var root Fields
	err = json.Unmarshal(trimmed, &root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotObject, err.Error())
	}
	if root == nil {
		return nil, ErrNotObject
	}

	self = &Payload{
		Root: root,
		Raw:  json.RawMessage(trimmed),
	}

	self.Body = root.Object("body")
	if self.Body == nil {
		self.Body = root
	}

	self.Instance, _ = root.String("instance")
	self.Event, _ = self.Body.String("event")

	return
}

func (self *Payload) EventType() (EventType, bool) {
	return ParseEventType(self.Event)
}

// Off-chain document reference, present when the body is published through an anchor
func (self *Payload) Anchor() (url, dataHash string, ok bool) {
	for _, f := range []Fields{self.Body, self.Root} {
		url, ok = f.Text("anchorUrl")
		if !ok {
			continue
		}
		dataHash, _ = f.Text("anchorDataHash")
		return url, dataHash, true
	}
	return "", "", false
}

// Replaces the interpreted content with a document fetched from the anchor.
// The raw on-chain payload and the instance (if the document has none) are kept.
func (self *Payload) WithAnchored(doc *Payload) *Payload {
	out := *doc
	out.Raw = self.Raw
	if out.Instance == "" {
		out.Instance = self.Instance
	}
	return &out
}
