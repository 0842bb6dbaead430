package node

import (
	"reflect"
	"sort"
	"testing"
)

func TestPeerCacheReplaceAndSnapshot(t *testing.T) {
	c := newPeerCache()
	c.Replace([]string{"a", "b"})

	got := c.Snapshot()
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Snapshot() = %v, want [a b]", got)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestPeerCacheReplaceDropsStaleEntries(t *testing.T) {
	c := newPeerCache()
	c.Replace([]string{"a", "b"})
	c.Replace([]string{"b", "c"})

	got := c.Snapshot()
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("Snapshot() = %v, want [b c]", got)
	}
}

func TestPeerCacheEmpty(t *testing.T) {
	c := newPeerCache()
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
	if got := c.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot() = %v, want empty", got)
	}
}
