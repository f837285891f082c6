package ui

// Canonical primitive names of the default catalog.
const (
	TypeBox               = "Box"
	TypeContainer         = "Container"
	TypeHeader            = "Header"
	TypeSpaceBetween      = "SpaceBetween"
	TypeColumnLayout      = "ColumnLayout"
	TypeExpandableSection = "ExpandableSection"
	TypeTabs              = "Tabs"
	TypeForm              = "Form"
	TypeFormField         = "FormField"
	TypeInput             = "Input"
	TypeTextarea          = "Textarea"
	TypeSelect            = "Select"
	TypeCheckbox          = "Checkbox"
	TypeToggle            = "Toggle"
	TypeRadioGroup        = "RadioGroup"
	TypeButton            = "Button"
	TypeLink              = "Link"
	TypeTable             = "Table"
	TypeCards             = "Cards"
	TypeAlert             = "Alert"
	TypeStatusIndicator   = "StatusIndicator"
	TypeKeyValuePairs     = "KeyValuePairs"
	TypeProgressBar       = "ProgressBar"
	TypeBadge             = "Badge"
	TypeCodeView          = "CodeView"
	TypeLineChart         = "LineChart"
)

const tableSchema = `{
  "type": "object",
  "properties": {
    "columns": {"type": "array"},
    "columnDefinitions": {"type": "array"},
    "items": {"type": "array"}
  }
}`

const selectSchema = `{
  "type": "object",
  "properties": {
    "options": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "value": {"type": "string"},
          "label": {"type": "string"}
        },
        "required": ["value"]
      }
    }
  }
}`

const progressSchema = `{
  "type": "object",
  "properties": {
    "value": {"type": "number"}
  }
}`

// DefaultRegistry returns a registry holding the console widget catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, name := range []string{TypeBox, TypeContainer, TypeSpaceBetween, TypeColumnLayout, TypeExpandableSection, TypeTabs, TypeForm, TypeFormField} {
		r.MustRegister(name, Widget(name), WithCapabilities(CapContainer))
	}
	r.MustRegister(TypeHeader, Widget(TypeHeader))

	r.MustRegister(TypeInput, Widget(TypeInput), WithCapabilities(CapField), WithAliases("text-input", "TextInput"))
	r.MustRegister(TypeTextarea, Widget(TypeTextarea), WithCapabilities(CapField), WithAliases("text-area"))
	r.MustRegister(TypeSelect, Widget(TypeSelect), WithCapabilities(CapField), WithAliases("dropdown"), WithPropsSchema(selectSchema))
	r.MustRegister(TypeCheckbox, Widget(TypeCheckbox), WithCapabilities(CapField))
	r.MustRegister(TypeToggle, Widget(TypeToggle), WithCapabilities(CapField), WithAliases("switch"))
	r.MustRegister(TypeRadioGroup, Widget(TypeRadioGroup), WithCapabilities(CapField), WithAliases("radio"))

	r.MustRegister(TypeButton, Widget(TypeButton), WithCapabilities(CapClickable))
	r.MustRegister(TypeLink, Widget(TypeLink), WithCapabilities(CapClickable))

	r.MustRegister(TypeTable, Widget(TypeTable), WithCapabilities(CapCollection), WithAliases("data-table"), WithPropsSchema(tableSchema))
	r.MustRegister(TypeCards, Widget(TypeCards), WithCapabilities(CapCollection))

	r.MustRegister(TypeAlert, Widget(TypeAlert), WithCapabilities(CapContainer))
	r.MustRegister(TypeStatusIndicator, Widget(TypeStatusIndicator), WithCapabilities(CapContainer), WithAliases("status"))
	r.MustRegister(TypeKeyValuePairs, Widget(TypeKeyValuePairs), WithAliases("key-value", "kv"))
	r.MustRegister(TypeProgressBar, Widget(TypeProgressBar), WithAliases("progress"), WithPropsSchema(progressSchema))
	r.MustRegister(TypeBadge, Widget(TypeBadge), WithCapabilities(CapContainer))
	r.MustRegister(TypeCodeView, Widget(TypeCodeView), WithAliases("code"))
	r.MustRegister(TypeLineChart, Widget(TypeLineChart), WithAliases("chart"))

	return r
}
