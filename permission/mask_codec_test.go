package permission

import (
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedCodec(t *testing.T) (*Codec, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return NewCodec(newTestRegistry(t), zap.New(core)), logs
}

func TestPackUnpackBitLayout(t *testing.T) {
	if got := Pack(5, 7); got != 5<<16|7 {
		t.Fatalf("expected %d, got %d", 5<<16|7, got)
	}
	if got := Pack(0xFFFF, 0xFFFF); got != 0xFFFFFFFF {
		t.Fatalf("expected max uint32, got %d", got)
	}
	id, mask := Unpack(0xFFFF0001)
	if id != 0xFFFF || mask != 1 {
		t.Fatalf("expected (65535, 1), got (%d, %d)", id, mask)
	}
}

func TestEncodeUsesCombinedMasks(t *testing.T) {
	codec, _ := newObservedCodec(t)

	s, ok := codec.Encode(map[string][]string{"product": {ActionRead, ActionUpdate}})
	if !ok {
		t.Fatal("expected encode to succeed")
	}
	if s != fmt.Sprint(Pack(5, 3)) {
		t.Fatalf("expected %d, got %q", Pack(5, 3), s)
	}

	decoded := codec.Decode(s)
	product, _ := codec.registry.Feature("product")
	if decoded[5] != product.actions[ActionUpdate].CombinedMask {
		t.Fatalf("expected product mask to equal combined mask of update, got %d", decoded[5])
	}
}

func TestEncodeIsOrderedByFeatureID(t *testing.T) {
	codec, _ := newObservedCodec(t)

	s, ok := codec.Encode(map[string][]string{
		"product":  {ActionRead},
		"customer": {ActionCreate},
		"report":   {"export"},
	})
	if !ok {
		t.Fatal("expected encode to succeed")
	}
	want := fmt.Sprintf("%d.%d.%d", Pack(1, 7), Pack(5, 1), Pack(8, 17))
	if s != want {
		t.Fatalf("expected %q, got %q", want, s)
	}
}

func TestEncodeSkipsUnknownNames(t *testing.T) {
	codec, logs := newObservedCodec(t)

	s, ok := codec.Encode(map[string][]string{
		"warehouse": {ActionRead},
		"order":     {"teleport", ActionRead},
	})
	if !ok {
		t.Fatal("expected partial encode to succeed")
	}
	if s != fmt.Sprint(Pack(2, 1)) {
		t.Fatalf("unexpected encoding %q", s)
	}
	if logs.FilterMessage("permission: encode skipped unknown feature").Len() != 1 {
		t.Fatal("expected unknown feature warning")
	}
	if logs.FilterMessage("permission: encode skipped unknown action").Len() != 1 {
		t.Fatal("expected unknown action warning")
	}
}

func TestEncodeNothingEncodable(t *testing.T) {
	codec, _ := newObservedCodec(t)

	cases := []map[string][]string{
		nil,
		{},
		{"warehouse": {ActionRead}},
		{"order": {"teleport"}},
	}
	for _, in := range cases {
		if s, ok := codec.Encode(in); ok || s != "" {
			t.Fatalf("expected nothing encoded for %v, got %q", in, s)
		}
	}
}

func TestEncodeEmptyActionListRevokes(t *testing.T) {
	codec, _ := newObservedCodec(t)

	s, ok := codec.Encode(map[string][]string{"order": {}})
	if !ok {
		t.Fatal("expected explicit revoke to encode")
	}
	if s != fmt.Sprint(Pack(2, 0)) {
		t.Fatalf("expected zero mask token, got %q", s)
	}
}

func TestDecodeRoundTripsEveryValidPair(t *testing.T) {
	reg, err := NewRegistry([]FeatureConfig{{ID: 0, Name: "zero"}, {ID: 300, Name: "mid"}, {ID: 65535, Name: "max"}})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	codec := NewCodec(reg, nil)

	for _, id := range []uint16{0, 300, 65535} {
		for _, mask := range []uint16{0, 1, 0x8000, 0xFFFF, 0x1234} {
			got := codec.Decode(fmt.Sprintf("%d", uint32(id)<<16|uint32(mask)))
			want := map[uint16]uint16{id: mask}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("id=%d mask=%d: expected %v, got %v", id, mask, want, got)
			}
		}
	}
}

func TestDecodeSkipsMalformedTokens(t *testing.T) {
	codec, logs := newObservedCodec(t)

	in := fmt.Sprintf("-5.abc.%d..4294967296.%d. %d ", Pack(999, 1), Pack(2, 3), Pack(5, 1))
	got := codec.Decode(in)
	want := map[uint16]uint16{2: 3, 5: 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if logs.FilterMessage("permission: decode skipped malformed token").Len() != 3 {
		t.Fatalf("expected 3 malformed token warnings, got %d", logs.FilterMessage("permission: decode skipped malformed token").Len())
	}
	if logs.FilterMessage("permission: decode skipped unknown feature id").Len() != 1 {
		t.Fatal("expected unknown feature id warning")
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	codec, _ := newObservedCodec(t)
	for _, in := range []string{"", "   ", "."} {
		if got := codec.Decode(in); len(got) != 0 {
			t.Fatalf("expected no overrides for %q, got %v", in, got)
		}
	}
}

func TestDecodeLastTokenWins(t *testing.T) {
	codec, _ := newObservedCodec(t)

	got := codec.Decode(fmt.Sprintf("%d.%d", Pack(2, 1), Pack(2, 7)))
	if got[2] != 7 {
		t.Fatalf("expected last token to win, got %d", got[2])
	}
}
