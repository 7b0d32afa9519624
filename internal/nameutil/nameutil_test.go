package nameutil

import "testing"

func TestGeneratePortName(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"u_sub.sig", "__xmr__u_sub_sig"},
		{"u_l1.u_l2.u_l3.deep", "__xmr__u_l1_u_l2_u_l3_deep"},
		{"u_a..u_b", "__xmr__u_a_u_b"},
		{"u_a. \tu_b", "__xmr__u_a_u_b"},
		{"clock", "__xmr__clock"},
	}
	for _, c := range cases {
		if got := GeneratePortName(c.path); got != c.want {
			t.Errorf("GeneratePortName(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestExtractBaseAndSuffix(t *testing.T) {
	cases := []struct {
		text       string
		base, suff string
	}{
		{"u_sub.arr[2][3]", "u_sub.arr", "[2][3]"},
		{"u_sub.sig", "u_sub.sig", ""},
		{"arr[0]", "arr", "[0]"},
	}
	for _, c := range cases {
		if got := ExtractBasePath(c.text); got != c.base {
			t.Errorf("ExtractBasePath(%q) = %q, want %q", c.text, got, c.base)
		}
		if got := ExtractArraySuffix(c.text); got != c.suff {
			t.Errorf("ExtractArraySuffix(%q) = %q, want %q", c.text, got, c.suff)
		}
		if got := ExtractBasePath(c.text) + ExtractArraySuffix(c.text); got != c.base+c.suff {
			t.Errorf("base+suffix roundtrip mismatch for %q", c.text)
		}
	}
}

func TestGeneratePortNameHomomorphism(t *testing.T) {
	a, b := "u_sub", "sig"
	whole := GeneratePortName(a + "." + b)
	parts := GeneratePortName(a) + "_" + GeneratePortName(b)[len(PortPrefix):]
	if whole != parts {
		t.Errorf("GeneratePortName is not a separator-collapse homomorphism: %q vs %q", whole, parts)
	}
}
