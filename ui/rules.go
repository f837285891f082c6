package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-assistant"
)

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "collection-columns", Match: ForCapability(CapCollection), Apply: applyColumns},
		{Name: "click-download", Match: ForCapability(CapClickable), Apply: applyClick},
		{Name: "field-binding", Match: ForCapability(CapField), Apply: applyFieldBinding},
		{Name: "status-indicator", Match: ForTypes(TypeStatusIndicator), Apply: applyStatusIndicator},
		{Name: "key-value-pairs", Match: ForTypes(TypeKeyValuePairs), Apply: applyKeyValuePairs},
		{Name: "progress-bar", Match: ForTypes(TypeProgressBar), Apply: applyProgress},
		{Name: "alert-type", Match: ForTypes(TypeAlert), Apply: applyAlert},
	}
}

func applyColumns(_ Env, _ Entry, props assistant.Props) {
	raw, ok := props["columnDefinitions"]
	if !ok {
		raw = props["columns"]
	}
	cols := normalizeColumns(raw)
	if cols == nil {
		return
	}
	props["columnDefinitions"] = cols
	delete(props, "columns")
}

func normalizeColumns(raw any) []Column {
	var items []any
	switch t := raw.(type) {
	case []Column:
		return t
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []any:
		items = t
	default:
		return nil
	}

	cols := make([]Column, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case string:
			cols = append(cols, Column{ID: c, Header: humanize(c), Cell: fieldAccessor(c)})
		case map[string]any:
			id, _ := c["id"].(string)
			header, _ := c["header"].(string)
			field, _ := c["cell"].(string)
			if field == "" {
				field, _ = c["field"].(string)
			}
			if field == "" {
				field = id
			}
			if id == "" {
				id = field
			}
			if header == "" {
				header = humanize(id)
			}
			cols = append(cols, Column{ID: id, Header: header, Cell: fieldAccessor(field)})
		}
	}
	return cols
}

func fieldAccessor(path string) CellAccessor {
	parts := strings.Split(path, ".")
	return func(row map[string]any) any {
		var cur any = row
		for _, p := range parts {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[p]
		}
		return cur
	}
}

func applyClick(env Env, entry Entry, props assistant.Props) {
	if raw, ok := props["download"].(map[string]any); ok {
		dl := parseDownload(raw)
		downloads := env.Downloads
		logger := env.Logger
		props[PropOnClick] = ClickHandler(func(ctx context.Context) error {
			if downloads == nil {
				logger.Warn("download requested without downloader file=%s", dl.Filename)
				return nil
			}
			return downloads.Download(ctx, dl)
		})
		return
	}

	actionID := props.String("actionId")
	if actionID == "" {
		actionID = props.String("action")
	}
	if actionID == "" {
		return
	}
	params, _ := props["params"].(map[string]any)
	sink := env.Actions
	props[PropOnClick] = ClickHandler(func(ctx context.Context) error {
		var p map[string]any
		if params != nil {
			p, _ = assistant.CloneValue(params).(map[string]any)
		}
		return sink.TriggerAction(ctx, actionID, p)
	})
}

func parseDownload(raw map[string]any) Download {
	dl := Download{Filename: "download.txt", MimeType: "text/plain"}
	if name, ok := raw["filename"].(string); ok && name != "" {
		dl.Filename = name
	}
	switch content := raw["content"].(type) {
	case string:
		dl.Content = []byte(content)
	case nil:
	default:
		data, err := json.MarshalIndent(content, "", "  ")
		if err == nil {
			dl.Content = data
			dl.MimeType = "application/json"
		}
	}
	for _, key := range []string{"mime", "mimeType"} {
		if mime, ok := raw[key].(string); ok && strings.TrimSpace(mime) != "" {
			dl.MimeType = strings.TrimSpace(mime)
			break
		}
	}
	return dl
}

func applyFieldBinding(env Env, entry Entry, props assistant.Props) {
	id := fieldID(entry, props)
	props[PropFieldID] = id
	onChange := env.OnChange

	switch entry.Name {
	case TypeCheckbox, TypeToggle:
		checked, _ := props.Bool("checked")
		if v, ok := props.Bool("defaultChecked"); ok && props["checked"] == nil {
			checked = v
		}
		if v, ok := env.Form.Lookup(id); ok {
			checked = toBool(v)
		}
		props["checked"] = checked
		delete(props, "defaultChecked")
		props[PropOnChange] = ChangeHandler(func(value any) {
			onChange(id, toBool(value))
		})
	case TypeSelect:
		value := selectValue(props["selectedOption"])
		if value == "" {
			value = scalarString(props["value"])
		}
		if value == "" {
			value = scalarString(props["defaultValue"])
		}
		if v, ok := env.Form.Lookup(id); ok {
			value = selectValue(v)
		}
		props["value"] = value
		props["selectedOption"] = findOption(props["options"], value)
		delete(props, "defaultValue")
		props[PropOnChange] = ChangeHandler(func(v any) {
			onChange(id, selectValue(v))
		})
	default:
		var value any = ""
		if v, ok := props["value"]; ok && v != nil {
			value = v
		} else if v, ok := props["defaultValue"]; ok && v != nil {
			value = v
		}
		if v, ok := env.Form.Lookup(id); ok {
			value = v
		}
		props["value"] = value
		delete(props, "defaultValue")
		props[PropOnChange] = ChangeHandler(func(v any) {
			onChange(id, v)
		})
	}
}

func fieldID(entry Entry, props assistant.Props) string {
	if id := strings.TrimSpace(props.String("id")); id != "" {
		return id
	}
	if name := strings.TrimSpace(props.String("name")); name != "" {
		return name
	}
	fallback := strings.ToLower(entry.Name)
	if label := slug(props.String("label")); label != "" {
		fallback += "-" + label
	}
	return fallback
}

func selectValue(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return scalarString(t["value"])
	case nil:
		return ""
	default:
		return scalarString(t)
	}
}

func findOption(options any, value string) any {
	items, ok := options.([]any)
	if !ok || value == "" {
		return nil
	}
	for _, item := range items {
		if opt, ok := item.(map[string]any); ok && scalarString(opt["value"]) == value {
			return opt
		}
	}
	return nil
}

func applyStatusIndicator(_ Env, _ Entry, props assistant.Props) {
	status := props.String("status")
	if status == "" {
		status = props.String("type")
	}
	props["type"] = indicatorType(status)
	delete(props, "status")
}

func indicatorType(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "pending":
		return "pending"
	case "in-progress", "in_progress", "creating", "loading", "running":
		return "in-progress"
	case "success", "active", "available", "completed":
		return "success"
	case "error", "failed":
		return "error"
	default:
		return strings.ToLower(strings.TrimSpace(status))
	}
}

func applyKeyValuePairs(_ Env, _ Entry, props assistant.Props) {
	var pairs map[string]any
	switch t := props["items"].(type) {
	case map[string]any:
		pairs = t
	case map[string]string:
		pairs = make(map[string]any, len(t))
		for k, v := range t {
			pairs[k] = v
		}
	default:
		return
	}
	labels := make([]string, 0, len(pairs))
	for k := range pairs {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	items := make([]any, 0, len(labels))
	for _, label := range labels {
		items = append(items, map[string]any{"label": label, "value": pairs[label]})
	}
	props["items"] = items
}

func applyProgress(_ Env, _ Entry, props assistant.Props) {
	v, ok := toFloat(props["value"])
	if !ok {
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	props["value"] = v
}

func applyAlert(_ Env, _ Entry, props assistant.Props) {
	if props.String("type") == "" {
		props["type"] = "info"
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return strings.EqualFold(strings.TrimSpace(t), "on")
		}
		return b
	case map[string]any:
		return toBool(t["checked"])
	default:
		f, ok := toFloat(v)
		return ok && f != 0
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func humanize(id string) string {
	s := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(strings.TrimSpace(id))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
