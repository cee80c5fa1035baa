package ring

import "testing"

func mustSpace(t *testing.T, bits int) Space {
	t.Helper()
	sp, err := NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace(%d): %v", bits, err)
	}
	return sp
}

func id8(v byte) ID { return ID{v} }

// Invariant 1: in_inc(x,a,b) == (in_exc(x,a,b) || x == b).
func TestInIncEqualsInExcOrEqualB(t *testing.T) {
	sp := mustSpace(t, 8)
	for a := 0; a < 256; a += 17 {
		for b := 0; b < 256; b += 17 {
			for x := 0; x < 256; x += 5 {
				got := InInc(id8(byte(x)), id8(byte(a)), id8(byte(b)))
				want := InExc(id8(byte(x)), id8(byte(a)), id8(byte(b))) || x == b
				if got != want {
					t.Fatalf("InInc(%d,%d,%d)=%v, want %v", x, a, b, got, want)
				}
			}
		}
	}
	_ = sp
}

// Invariant 2: for a != b, exactly one of in_exc(x,a,b), in_exc(x,b,a),
// x==a, x==b holds.
func TestInExcPartitionsRing(t *testing.T) {
	for a := 0; a < 256; a += 31 {
		for b := 0; b < 256; b += 31 {
			if a == b {
				continue
			}
			for x := 0; x < 256; x++ {
				count := 0
				if InExc(id8(byte(x)), id8(byte(a)), id8(byte(b))) {
					count++
				}
				if InExc(id8(byte(x)), id8(byte(b)), id8(byte(a))) {
					count++
				}
				if x == a {
					count++
				}
				if x == b {
					count++
				}
				if count != 1 {
					t.Fatalf("x=%d a=%d b=%d: count=%d, want 1", x, a, b, count)
				}
			}
		}
	}
}

// S6 - interval wrap: m=8, self_id=250, successor_id=10.
func TestIntervalWrap(t *testing.T) {
	self := id8(250)
	succ := id8(10)

	cases := []struct {
		x    byte
		want bool
	}{
		{255, true},
		{9, true},
		{10, true},
		{11, false},
		{250, false},
	}
	for _, c := range cases {
		got := InInc(id8(c.x), self, succ)
		if got != c.want {
			t.Errorf("InInc(%d, 250, 10) = %v, want %v", c.x, got, c.want)
		}
	}
}

func TestInExcAllSameIsWholeRingMinusA(t *testing.T) {
	a := id8(42)
	for x := 0; x < 256; x++ {
		got := InExc(id8(byte(x)), a, a)
		want := x != 42
		if got != want {
			t.Errorf("InExc(%d,42,42)=%v, want %v", x, got, want)
		}
	}
}

func TestInIncAllSameIsWholeRing(t *testing.T) {
	a := id8(42)
	for x := 0; x < 256; x++ {
		if !InInc(id8(byte(x)), a, a) {
			t.Errorf("InInc(%d,42,42) = false, want true", x)
		}
	}
}

func TestHashIsStableAndWithinSpace(t *testing.T) {
	sp := mustSpace(t, 160)
	id1 := sp.HashString("node-a:8080")
	id2 := sp.HashString("node-a:8080")
	if !id1.Equal(id2) {
		t.Fatal("Hash is not deterministic")
	}
	if len(id1) != sp.ByteLen {
		t.Fatalf("Hash length = %d, want %d", len(id1), sp.ByteLen)
	}
}

func TestHashMaskedToNonByteAlignedBits(t *testing.T) {
	sp := mustSpace(t, 5) // ByteLen=1, top 3 bits of the single byte must be 0.
	for _, s := range []string{"a", "b", "c", "node-1", "node-2"} {
		id := sp.HashString(s)
		if id[0]&0xE0 != 0 {
			t.Fatalf("Hash(%q) = %08b, expected top 3 bits clear", s, id[0])
		}
	}
}

func TestAddPow2Wraps(t *testing.T) {
	sp := mustSpace(t, 8)
	got := sp.AddPow2(id8(250), 3) // 250 + 8 = 258 mod 256 = 2
	if got[0] != 2 {
		t.Fatalf("AddPow2(250, 3) = %d, want 2", got[0])
	}
}
