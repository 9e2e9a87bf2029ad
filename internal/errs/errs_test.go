package errs

import (
	"errors"
	"testing"
)

func TestWrapKeepsChain(t *testing.T) {
	root := errors.New("root")
	err := Wrapf(Wrap(root, "load"), "incident %d", 7)

	if !errors.Is(err, root) {
		t.Fatalf("errors.Is() = false, want true")
	}
	if err.Error() != "incident 7: load: root" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if Wrap(nil, "x") != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}

func TestCodeOf(t *testing.T) {
	sentinel := errors.New("missing")
	err := Wrap(WithCode(sentinel, CodeNotFound), "get incident")

	if got := CodeOf(err); got != CodeNotFound {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeNotFound)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("coded error lost the chain")
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("CodeOf(plain) = %q", got)
	}
}

func TestWithStackIsIdempotent(t *testing.T) {
	first := WithStack(errors.New("boom"))
	second := WithStack(Wrap(first, "outer"))

	var se *StackError
	if !errors.As(second, &se) {
		t.Fatalf("expected StackError in chain")
	}
	if len(se.Stack()) == 0 {
		t.Fatalf("stack is empty")
	}
	if len(ErrorChainStrings(second)) != 3 {
		t.Fatalf("chain = %#v", ErrorChainStrings(second))
	}
}
