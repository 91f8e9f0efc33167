package whatsapp

import (
	"testing"
)

func TestExtractVariablesOrdering(t *testing.T) {
	t.Parallel()

	tmpl := Template{
		Name: "order_update",
		Components: []TemplateComponent{
			{Type: "HEADER", Format: "TEXT", Text: "Hola {{1}} {{2}}"},
			{Type: "BODY", Text: "Tu pedido {{1}} llega el {{2}}."},
			{Type: "FOOTER", Text: "Responde STOP para darte de baja"},
		},
	}

	vars := ExtractVariables(tmpl)
	if len(vars) != 4 {
		t.Fatalf("expected 4 variables, got %d: %+v", len(vars), vars)
	}
	expected := []struct {
		kind ComponentKind
		slot string
	}{
		{KindHeader, "1"},
		{KindHeader, "2"},
		{KindBody, "1"},
		{KindBody, "2"},
	}
	for i, want := range expected {
		if vars[i].Kind != want.kind || vars[i].Slot != want.slot {
			t.Fatalf("slot %d: expected %s/%s, got %s/%s", i, want.kind, want.slot, vars[i].Kind, vars[i].Slot)
		}
	}
}

func TestExtractVariablesDedupesAndSortsPositional(t *testing.T) {
	t.Parallel()

	tmpl := Template{
		Components: []TemplateComponent{
			{Type: "BODY", Text: "{{2}} then {{1}} then {{2}} again and {{10}}"},
		},
	}

	vars := ExtractVariables(tmpl)
	if len(vars) != 3 {
		t.Fatalf("expected 3 deduped variables, got %d", len(vars))
	}
	for i, slot := range []string{"1", "2", "10"} {
		if vars[i].Slot != slot {
			t.Fatalf("expected ascending numeric order, slot %d is %q", i, vars[i].Slot)
		}
	}
}

func TestExtractVariablesNamedParamsAreAuthoritative(t *testing.T) {
	t.Parallel()

	// The declared named params win over a literal scan of the text.
	tmpl := Template{
		Components: []TemplateComponent{
			{
				Type: "BODY",
				Text: "Hola {{customer_name}}",
				Example: &ComponentExample{
					BodyTextNamedParams: []NamedParam{
						{ParamName: "customer_name", Example: "Ana"},
						{ParamName: "due_date", Example: "viernes"},
					},
				},
			},
		},
	}

	vars := ExtractVariables(tmpl)
	if len(vars) != 2 {
		t.Fatalf("expected named param cardinality to win, got %d variables", len(vars))
	}
	if vars[0].Slot != "customer_name" || vars[1].Slot != "due_date" {
		t.Fatalf("unexpected named slots: %+v", vars)
	}
}

func TestExtractVariablesDynamicURLButtons(t *testing.T) {
	t.Parallel()

	tmpl := Template{
		Components: []TemplateComponent{
			{Type: "BUTTONS", Buttons: []TemplateButton{
				{Type: "QUICK_REPLY", Text: "Si"},
				{Type: "URL", Text: "Ver", URL: "https://example.com/static"},
				{Type: "URL", Text: "Pedido", URL: "https://example.com/orders/{{1}}"},
				{Type: "URL", Text: "Pagar", URL: "https://example.com/pay", URLType: "DYNAMIC"},
				{Type: "URL", Text: "Track", URL: "https://example.com/t", Example: []string{"https://example.com/t/123"}},
			}},
		},
	}

	vars := ExtractVariables(tmpl)
	if len(vars) != 3 {
		t.Fatalf("expected 3 dynamic button slots, got %d: %+v", len(vars), vars)
	}
	for i, idx := range []int{2, 3, 4} {
		if vars[i].Kind != KindButton || vars[i].ButtonIndex != idx {
			t.Fatalf("expected button index %d at position %d, got %+v", idx, i, vars[i])
		}
	}
}

func TestBuildComponents(t *testing.T) {
	t.Parallel()

	tmpl := Template{
		Components: []TemplateComponent{
			{Type: "HEADER", Format: "TEXT", Text: "Hola {{1}}"},
			{Type: "BODY", Text: "Pedido {{1}}"},
			{Type: "BUTTONS", Buttons: []TemplateButton{
				{Type: "URL", Text: "Ver", URL: "https://example.com/o/{{1}}"},
			}},
		},
	}
	vars := ExtractVariables(tmpl)
	components := BuildComponents(vars, map[string]string{
		"header_1":   "Ana",
		"body_1":     "A-42",
		"button_0_1": "A-42",
	})

	if len(components) != 3 {
		t.Fatalf("expected header+body+button, got %d components", len(components))
	}
	if components[0].Type != "header" || components[0].Parameters[0].Text != "Ana" {
		t.Fatalf("unexpected header component: %+v", components[0])
	}
	if components[1].Type != "body" || components[1].Parameters[0].Text != "A-42" {
		t.Fatalf("unexpected body component: %+v", components[1])
	}
	btn := components[2]
	if btn.Type != "button" || btn.SubType != "url" || btn.Index == nil || *btn.Index != 0 {
		t.Fatalf("unexpected button component: %+v", btn)
	}
}

func TestBuildComponentsEmptyTemplate(t *testing.T) {
	t.Parallel()

	if got := BuildComponents(nil, nil); got != nil {
		t.Fatalf("expected nil components for a variable-free template, got %+v", got)
	}
}

func TestRenderBody(t *testing.T) {
	t.Parallel()

	components := []TemplateComponent{
		{Type: "BODY", Text: "Hola {{1}}, tu pedido {{2}} llega pronto."},
	}
	got := RenderBody(components, map[string]string{"body_1": "Ana", "body_2": "A-42"})
	if got != "Hola Ana, tu pedido A-42 llega pronto." {
		t.Fatalf("unexpected rendered body: %q", got)
	}

	// Missing values keep the placeholder visible.
	partial := RenderBody(components, map[string]string{"body_1": "Ana"})
	if partial != "Hola Ana, tu pedido {{2}} llega pronto." {
		t.Fatalf("unexpected partial render: %q", partial)
	}
}
