//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParseDocumentID checks that parsing never panics on arbitrary input
// and that accepted values round-trip through their canonical string.
func FuzzParseDocumentID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE documents;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseDocumentID(input)
		if err != nil {
			return
		}
		roundTrip, err2 := ParseDocumentID(id.String())
		if err2 != nil {
			t.Errorf("accepted ID failed round-trip: %v", err2)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}

// FuzzParseIDs ensures the ID types validate identically; divergent
// validation between them would be a hole at the event boundary.
func FuzzParseIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errDoc := ParseDocumentID(input)
		_, errSigner := ParseSignerID(input)

		if (errDoc == nil) != (errSigner == nil) {
			t.Error("inconsistent validation across ID types")
		}
	})
}
