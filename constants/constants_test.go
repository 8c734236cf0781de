package constants

import "testing"

func TestIsPDFExt(t *testing.T) {
	cases := map[string]bool{
		".pdf":  true,
		".PDF":  true,
		"Pdf":   true,
		".txt":  false,
		"":      false,
		".pdfx": false,
	}
	for in, want := range cases {
		if got := IsPDFExt(in); got != want {
			t.Errorf("IsPDFExt(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []Method{MethodDirect, MethodOCR, MethodError} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Method("pdf-text").Valid() {
		t.Error("unknown method reported valid")
	}
}
