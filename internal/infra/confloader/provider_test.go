package confloader

import (
	"reflect"
	"testing"
)

func TestMapProviderUnflattens(t *testing.T) {
	got, err := mapProvider{"log.level": "debug", "storage.backend": "badger", "top": 1}.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := map[string]any{
		"log":     map[string]any{"level": "debug"},
		"storage": map[string]any{"backend": "badger"},
		"top":     1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read() = %v, want %v", got, want)
	}
}
