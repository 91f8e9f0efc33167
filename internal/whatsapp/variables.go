package whatsapp

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ComponentKind classifies which template component a variable substitutes into.
type ComponentKind string

const (
	KindHeader ComponentKind = "header"
	KindBody   ComponentKind = "body"
	KindButton ComponentKind = "button"
)

// Variable is one substitution slot a template requires at send time.
// Slot is the placeholder name ("1", "2", … for positional templates, the
// parameter name for named ones). ButtonIndex is the button declaration index
// and only meaningful for KindButton.
type Variable struct {
	Key         string
	Kind        ComponentKind
	Slot        string
	ButtonIndex int
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([0-9A-Za-z_]+)\s*\}\}`)

// ExtractVariables derives the ordered substitution slots a template needs:
// header slots first, then body, then one slot per dynamic URL button in
// button declaration order. This order is the serialization contract of
// BuildComponents; the provider binds values positionally.
func ExtractVariables(tmpl Template) []Variable {
	var vars []Variable

	for _, component := range tmpl.Components {
		switch strings.ToUpper(component.Type) {
		case "HEADER":
			if strings.ToUpper(component.Format) == "TEXT" && component.Text != "" {
				vars = append(vars, textSlots(component, KindHeader)...)
			}
		case "BODY":
			if component.Text != "" || component.Example != nil {
				vars = append(vars, textSlots(component, KindBody)...)
			}
		case "BUTTONS":
			for idx, btn := range component.Buttons {
				if !isDynamicURLButton(btn) {
					continue
				}
				vars = append(vars, Variable{
					Key:         fmt.Sprintf("button_%d_1", idx),
					Kind:        KindButton,
					Slot:        "1",
					ButtonIndex: idx,
				})
			}
		}
	}

	return vars
}

// textSlots extracts placeholder slots from a header or body component.
// Named example parameters, when declared, are authoritative for both slot
// names and cardinality; otherwise the literal text is scanned, deduped by
// first occurrence, positional slots sorted ascending.
func textSlots(component TemplateComponent, kind ComponentKind) []Variable {
	if kind == KindBody && component.Example != nil && len(component.Example.BodyTextNamedParams) > 0 {
		vars := make([]Variable, 0, len(component.Example.BodyTextNamedParams))
		seen := map[string]bool{}
		for _, p := range component.Example.BodyTextNamedParams {
			name := strings.TrimSpace(p.ParamName)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			vars = append(vars, Variable{
				Key:  string(kind) + "_" + name,
				Kind: kind,
				Slot: name,
			})
		}
		return vars
	}

	var vars []Variable
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(component.Text, -1) {
		slot := m[1]
		if seen[slot] {
			continue
		}
		seen[slot] = true
		vars = append(vars, Variable{
			Key:  string(kind) + "_" + slot,
			Kind: kind,
			Slot: slot,
		})
	}

	// Positional slots bind by ordinal, not first occurrence.
	allNumeric := true
	for _, v := range vars {
		if _, err := strconv.Atoi(v.Slot); err != nil {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		sort.SliceStable(vars, func(i, j int) bool {
			a, _ := strconv.Atoi(vars[i].Slot)
			b, _ := strconv.Atoi(vars[j].Slot)
			return a < b
		})
	}
	return vars
}

func isDynamicURLButton(btn TemplateButton) bool {
	if !strings.EqualFold(btn.Type, "URL") {
		return false
	}
	return strings.EqualFold(btn.URLType, "DYNAMIC") ||
		len(btn.Example) > 0 ||
		strings.Contains(btn.URL, "{{")
}

// BuildComponents assembles the provider components array for one recipient.
// values is keyed by Variable.Key; missing values become empty strings. The
// output order (header, body, buttons by declaration index) must match
// ExtractVariables.
func BuildComponents(vars []Variable, values map[string]string) []Component {
	var headerParams, bodyParams []Parameter
	var buttons []Component

	for _, v := range vars {
		param := Parameter{Type: "text", Text: values[v.Key]}
		switch v.Kind {
		case KindHeader:
			headerParams = append(headerParams, param)
		case KindBody:
			bodyParams = append(bodyParams, param)
		case KindButton:
			idx := v.ButtonIndex
			buttons = append(buttons, Component{
				Type:       "button",
				SubType:    "url",
				Index:      &idx,
				Parameters: []Parameter{param},
			})
		}
	}

	var components []Component
	if len(headerParams) > 0 {
		components = append(components, Component{Type: "header", Parameters: headerParams})
	}
	if len(bodyParams) > 0 {
		components = append(components, Component{Type: "body", Parameters: bodyParams})
	}
	components = append(components, buttons...)
	return components
}

// BodyText returns the BODY component text of a template, or "" when absent.
// Used for outbound message previews.
func BodyText(components []TemplateComponent) string {
	for _, c := range components {
		if strings.ToUpper(c.Type) == "BODY" {
			return c.Text
		}
	}
	return ""
}

// RenderBody substitutes a recipient's values into the BODY text for message
// previews. Slots without a value keep their placeholder.
func RenderBody(components []TemplateComponent, values map[string]string) string {
	body := BodyText(components)
	if body == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(body, func(match string) string {
		slot := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := values[string(KindBody)+"_"+slot]; ok && v != "" {
			return v
		}
		return match
	})
}
