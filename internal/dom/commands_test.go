package dom

import (
	"context"
	"strings"
	"testing"

	"github.com/roelfdiedericks/chatpilot/internal/devtools/devtoolstest"
)

func TestScriptsAreFunctionExpressions(t *testing.T) {
	all := []struct {
		name string
		fn   string
	}{
		{NameElementState, elementState.Fn},
		{NameClick, click.Fn},
		{NameResponse, response.Fn},
		{NameMarkFileInput, markFileInputs.Fn},
		{NameInjectFile, injectFile.Fn},
		{NameDropFile, dropFile.Fn},
	}
	for _, s := range all {
		if !strings.HasPrefix(s.fn, "(") || !strings.Contains(s.fn, ") => {") {
			t.Errorf("%s: not a function expression", s.name)
		}
		if !strings.HasSuffix(s.fn, "}") {
			t.Errorf("%s: unterminated body", s.name)
		}
	}
}

func TestArgumentsTravelAsData(t *testing.T) {
	var gotPhrase string
	var gotItems []string
	fake := devtoolstest.New().On(NameClickByText, func(args []any) (any, error) {
		gotItems = args[0].([]string)
		gotPhrase = args[1].(string)
		return ClickResult{Clicked: true, Text: "Extended thinking"}, nil
	})

	hostile := `"); alert(1); ("`
	res, err := ClickByText(context.Background(), fake, Selectors{`[role="menuitem"]`}, hostile)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Clicked {
		t.Error("expected click")
	}
	if gotPhrase != hostile {
		t.Errorf("phrase altered: %q", gotPhrase)
	}
	if len(gotItems) != 1 || gotItems[0] != `[role="menuitem"]` {
		t.Errorf("unexpected items %v", gotItems)
	}
	if strings.Contains(clickByText.Fn, hostile) {
		t.Error("script text must not embed caller data")
	}
}

func TestEmptySelectorsShortCircuit(t *testing.T) {
	fake := devtoolstest.New()
	ctx := context.Background()

	if n, err := Count(ctx, fake, nil); err != nil || n != 0 {
		t.Errorf("Count(nil) = %d, %v", n, err)
	}
	if ok, err := SignInVisible(ctx, fake, nil); err != nil || ok {
		t.Errorf("SignInVisible(nil) = %v, %v", ok, err)
	}
	res, err := Click(ctx, fake, nil, true)
	if err != nil || res.Clicked || res.Reason != "missing" {
		t.Errorf("Click(nil) = %+v, %v", res, err)
	}
	if len(fake.Evals) != 0 {
		t.Errorf("expected no evaluations, got %v", fake.Evals)
	}
}

func TestMarkerSelector(t *testing.T) {
	if got := MarkerSelector("abc", 12); got != `[data-chatpilot-upload="abc-12"]` {
		t.Errorf("got %s", got)
	}
}
