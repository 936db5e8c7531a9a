package topics

import "testing"

func TestRandomReturnsCatalogueEntry(t *testing.T) {
	known := make(map[string]bool, len(Catalogue))
	for _, topic := range Catalogue {
		known[topic] = true
	}
	for i := 0; i < 50; i++ {
		if topic := Random(); !known[topic] {
			t.Fatalf("Random() = %q, not in catalogue", topic)
		}
	}
}
