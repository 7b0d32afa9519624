package cache

import "testing"

func TestHashFilesIsOrderIndependent(t *testing.T) {
	a := map[string][]byte{"a.sv": []byte("module a; endmodule"), "b.sv": []byte("module b; endmodule")}
	b := map[string][]byte{"b.sv": []byte("module b; endmodule"), "a.sv": []byte("module a; endmodule")}

	if HashFiles(a) != HashFiles(b) {
		t.Errorf("expected map iteration order to not affect the hash")
	}
}

func TestHashFilesChangesWithContent(t *testing.T) {
	a := map[string][]byte{"a.sv": []byte("module a; endmodule")}
	b := map[string][]byte{"a.sv": []byte("module a; endmodule // changed")}

	if HashFiles(a) == HashFiles(b) {
		t.Errorf("expected different content to produce different hashes")
	}
}

func TestBuildKeyIsDeterministic(t *testing.T) {
	files := map[string][]byte{"a.sv": []byte("module a; endmodule")}
	cfg := map[string]string{"topModule": "a"}

	k1, err := BuildKey(files, cfg)
	if err != nil {
		t.Fatalf("BuildKey: %v", err)
	}
	k2, err := BuildKey(files, cfg)
	if err != nil {
		t.Fatalf("BuildKey: %v", err)
	}
	if k1.String() != k2.String() {
		t.Errorf("expected identical inputs to produce identical keys, got %q and %q", k1, k2)
	}
}
