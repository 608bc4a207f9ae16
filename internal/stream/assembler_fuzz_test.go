package stream

import (
	"encoding/json"
	"strings"
	"testing"
)

func FuzzAssemblerSplit(f *testing.F) {
	f.Add(`{"overview":"x","confidence":0.5}`, 3)
	f.Add(`[1,2,{"a":[true,null]}]`, 7)
	f.Add(`{"s":"with \"escaped\" quotes"}`, 12)

	f.Fuzz(func(t *testing.T, doc string, cut int) {
		if !json.Valid([]byte(doc)) || len(doc) == 0 {
			return
		}
		if doc[0] != '{' && doc[0] != '[' {
			return
		}
		if strings.ContainsAny(doc, "\r\n") || strings.Contains(doc, DefaultPrefix) {
			return
		}
		cut = int(uint(cut) % uint(len(doc)))

		a := NewAssembler(Config{MaxBuffer: len(doc) + 1})
		found := 0
		for _, part := range []string{doc[:cut], doc[cut:]} {
			if _, ok := a.Feed(part); ok {
				found++
			}
		}
		if found != 1 {
			t.Fatalf("expected one value, got %d for %q split at %d", found, doc, cut)
		}
	})
}
