package permission

import (
	"testing"
)

// FuzzOverrideDecode exercises the override decoder with arbitrary strings.
// Goal: no panics; decoded overrides re-encode to a string that decodes identically.
func FuzzOverrideDecode(f *testing.F) {
	f.Add("")
	f.Add("327683")
	f.Add("65537.131075")
	f.Add("-1")
	f.Add("4294967295")
	f.Add("4294967296")
	f.Add("..1..")
	f.Add("abc.12x.0")

	reg, err := NewRegistry(DefaultCatalog())
	if err != nil {
		f.Fatalf("NewRegistry failed: %v", err)
	}
	codec := NewCodec(reg, nil)

	f.Fuzz(func(t *testing.T, s string) {
		decoded := codec.Decode(s)

		for id := range decoded {
			if _, ok := reg.FeatureByID(id); !ok {
				t.Fatalf("decoded unknown feature id %d", id)
			}
		}

		again := codec.Decode(codec.EncodeMasks(decoded))
		if len(again) != len(decoded) {
			t.Fatalf("roundtrip length mismatch: %d vs %d", len(decoded), len(again))
		}
		for id, mask := range decoded {
			if again[id] != mask {
				t.Fatalf("roundtrip mismatch for %d: %d vs %d", id, mask, again[id])
			}
		}
	})
}
