package tom

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestPayloadTestSuite(t *testing.T) {
	suite.Run(t, new(PayloadTestSuite))
}

type PayloadTestSuite struct {
	suite.Suite
}

func (s *PayloadTestSuite) TestEmpty() {
	for _, raw := range []string{"", "   ", "null"} {
		p, err := Parse([]byte(raw))
		require.Nil(s.T(), err)
		require.Nil(s.T(), p)
	}
}

func (s *PayloadTestSuite) TestMalformed() {
	for _, raw := range []string{"[1,2]", `"fund"`, "{", "12"} {
		p, err := Parse([]byte(raw))
		require.ErrorIs(s.T(), err, ErrNotObject, raw)
		require.Nil(s.T(), p)
	}
}

func (s *PayloadTestSuite) TestNestedBody() {
	p, err := Parse([]byte(`{"instance":"abc","body":{"event":"FUND","identifier":"P-1"}}`))
	require.Nil(s.T(), err)
	require.Equal(s.T(), "abc", p.Instance)

	typ, ok := p.EventType()
	require.True(s.T(), ok)
	require.Equal(s.T(), EventTypeFund, typ)

	id, ok := p.Body.String("identifier")
	require.True(s.T(), ok)
	require.Equal(s.T(), "P-1", id)
}

func (s *PayloadTestSuite) TestFlatBody() {
	p, err := Parse([]byte(`{"instance":"abc","event":"pause","reason":["too ","slow"]}`))
	require.Nil(s.T(), err)

	typ, ok := p.EventType()
	require.True(s.T(), ok)
	require.Equal(s.T(), EventTypePause, typ)

	reason, ok := p.Body.Text("reason")
	require.True(s.T(), ok)
	require.Equal(s.T(), "too slow", reason)
}

func (s *PayloadTestSuite) TestUnknownType() {
	p, err := Parse([]byte(`{"body":{"event":"frobnicate"}}`))
	require.Nil(s.T(), err)
	_, ok := p.EventType()
	require.False(s.T(), ok)
}

func (s *PayloadTestSuite) TestSweepCanonical() {
	for _, raw := range []string{"sweep", "SweepTreasury", "sweepvendor"} {
		typ, ok := ParseEventType(raw)
		require.True(s.T(), ok)
		require.Equal(s.T(), EventTypeSweep, typ.Canonical())
	}
	require.Equal(s.T(), EventTypeReorganize, EventTypeReorganize.Canonical())
}

func (s *PayloadTestSuite) TestAnchor() {
	p, err := Parse([]byte(`{"instance":"abc","body":{"anchorUrl":"https://example.com/doc.json","anchorDataHash":"00ff"}}`))
	require.Nil(s.T(), err)

	url, hash, ok := p.Anchor()
	require.True(s.T(), ok)
	require.Equal(s.T(), "https://example.com/doc.json", url)
	require.Equal(s.T(), "00ff", hash)

	doc, err := Parse([]byte(`{"body":{"event":"publish","label":"Treasury"}}`))
	require.Nil(s.T(), err)

	merged := p.WithAnchored(doc)
	require.Equal(s.T(), "abc", merged.Instance)
	require.Equal(s.T(), "publish", merged.Event)
	require.JSONEq(s.T(), string(p.Raw), string(merged.Raw))
}

func (s *PayloadTestSuite) TestText() {
	tests := []struct {
		raw      string
		expected string
		ok       bool
	}{
		{`null`, "", false},
		{`"plain"`, "plain", true},
		{`""`, "", false},
		{`42`, "42", true},
		{`true`, "true", true},
		{`["a","b",3,"c"]`, "abc", true},
		{`[]`, "", false},
		{`{"@value":"v"}`, "v", true},
		{`{"b":"second","a":"first"}`, "first", true},
		{`{"a":{"text":["x","y"]}}`, "xy", true},
		{`{}`, "", false},
	}

	for _, tt := range tests {
		f := Fields{"v": json.RawMessage(tt.raw)}
		out, ok := f.Text("v")
		require.Equal(s.T(), tt.ok, ok, tt.raw)
		require.Equal(s.T(), tt.expected, out, tt.raw)
	}

	_, ok := Fields{}.Text("missing")
	require.False(s.T(), ok)
}

func (s *PayloadTestSuite) TestNumbers() {
	f := Fields{
		"n":     json.RawMessage(`1000000000`),
		"s":     json.RawMessage(`"400000000"`),
		"float": json.RawMessage(`1.5`),
		"bad":   json.RawMessage(`"abc"`),
	}

	n, ok := f.Int64("n")
	require.True(s.T(), ok)
	require.Equal(s.T(), int64(1000000000), n)

	n, ok = f.Int64("s")
	require.True(s.T(), ok)
	require.Equal(s.T(), int64(400000000), n)

	_, ok = f.Int64("float")
	require.False(s.T(), ok)
	_, ok = f.Int64("bad")
	require.False(s.T(), ok)
	_, ok = f.Int64("missing")
	require.False(s.T(), ok)
}

func (s *PayloadTestSuite) TestCollections() {
	p, err := Parse([]byte(`{"body":{
		"otherIdentifiers":["x", 1, "y"],
		"milestones":[{"identifier":"m1"}, "junk"],
		"permissions":{"fund":{"signature":"abc"}},
		"evidence":null
	}}`))
	require.Nil(s.T(), err)

	require.Equal(s.T(), []string{"x", "y"}, p.Body.Strings("otherIdentifiers"))

	ms, ok := p.Body.Array("milestones")
	require.True(s.T(), ok)
	require.Len(s.T(), ms, 2)
	id, _ := ms[0].String("identifier")
	require.Equal(s.T(), "m1", id)
	require.Empty(s.T(), ms[1])

	require.JSONEq(s.T(), `{"fund":{"signature":"abc"}}`, string(p.Body.Raw("permissions")))
	require.Nil(s.T(), p.Body.Raw("evidence"))
	require.Nil(s.T(), p.Body.Object("otherIdentifiers"))
	require.Equal(s.T(), []string{"evidence", "milestones", "otherIdentifiers", "permissions"}, p.Body.Keys())
}
