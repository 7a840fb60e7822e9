package di

import "testing"

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestContainer_FactoryRunsOnce(t *testing.T) {
	c := NewContainer()
	tok := NewToken[greeter]("greeter")

	calls := 0
	RegisterToken(c, tok, func(ServiceRegistry) greeter {
		calls++
		return english{}
	})

	for i := 0; i < 3; i++ {
		if got := GetToken(c, tok).Greet(); got != "hello" {
			t.Fatalf("Greet() = %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("prefix", ">> ")

	tok := NewToken[string]("line")
	RegisterToken(c, tok, func(sr ServiceRegistry) string {
		return sr.Get("prefix").(string) + "ready"
	})

	if got := GetToken(c, tok); got != ">> ready" {
		t.Errorf("GetToken = %q", got)
	}
	if !c.Has("line") || c.Has("missing") {
		t.Error("Has reported wrong registrations")
	}
}

func TestContainer_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown service")
		}
	}()
	NewContainer().Get("nope")
}

func TestGetToken_NilInterface(t *testing.T) {
	c := NewContainer()
	tok := NewToken[greeter]("optional")
	RegisterToken(c, tok, func(ServiceRegistry) greeter { return nil })

	if got := GetToken(c, tok); got != nil {
		t.Errorf("GetToken = %v, want nil", got)
	}
}
