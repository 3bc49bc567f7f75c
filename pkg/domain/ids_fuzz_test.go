package domain

import (
	"testing"
)

// FuzzParseTransferID checks parsing never panics and that any accepted ID
// round-trips through String.
func FuzzParseTransferID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE vaults;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseTransferID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Fatal("accepted nil transfer ID")
		}
		roundTrip, err := ParseTransferID(id.String())
		if err != nil {
			t.Fatalf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Fatal("round-trip changed ID value")
		}
	})
}
