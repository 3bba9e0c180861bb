package storefront

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewFileStorage(path)

	if _, ok, err := s.Get("cart"); err != nil || ok {
		t.Fatalf("expected missing key on a new file, got ok=%v err=%v", ok, err)
	}

	if err := s.Set("cart", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("token", []byte(`"abc"`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("bad", []byte(`not json`)); err == nil {
		t.Error("expected an error for invalid JSON")
	}

	got, ok, err := NewFileStorage(path).Get("token")
	if err != nil || !ok || string(got) != `"abc"` {
		t.Errorf("unexpected token %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Delete("token"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get("token"); ok {
		t.Error("expected token to be deleted")
	}
	if _, ok, _ := s.Get("cart"); !ok {
		t.Error("deleting one key must keep the others")
	}
}

func TestFileStorage_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{{{ not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStorage(path)
	if _, ok, err := s.Get("cart"); err != nil || ok {
		t.Fatalf("expected an empty document, got ok=%v err=%v", ok, err)
	}

	if err := s.Set("token", []byte(`"abc"`)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := NewFileStorage(path).Get("token")
	if err != nil || !ok || string(got) != `"abc"` {
		t.Errorf("expected the file to be rewritten, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestOpen_CorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{{{ not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	app, err := Open(Options{Storage: NewFileStorage(path)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if app.Cart.Count() != 0 || app.Session.Authenticated() {
		t.Errorf("expected an empty cart and no session, got count=%d auth=%v", app.Cart.Count(), app.Session.Authenticated())
	}
	if err := app.Cart.Add(lamp); err != nil {
		t.Fatalf("Add after corrupt load: %v", err)
	}
}

func TestSession(t *testing.T) {
	store := NewMemoryStorage()
	s, err := LoadSession(store)
	if err != nil {
		t.Fatal(err)
	}
	if s.Authenticated() {
		t.Fatal("new session must be anonymous")
	}

	if err := s.SetToken("tok"); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := LoadSession(store)
	if reloaded.Token() != "tok" {
		t.Errorf("expected persisted token, got %q", reloaded.Token())
	}

	if err := reloaded.Clear(); err != nil {
		t.Fatal(err)
	}
	if again, _ := LoadSession(store); again.Authenticated() {
		t.Error("expected anonymous after Clear")
	}
}
