package recordstore

import (
	"strings"
	"time"
)

type notionQuery struct {
	Filter      *notionFilter `json:"filter,omitempty"`
	StartCursor string        `json:"start_cursor,omitempty"`
	PageSize    int           `json:"page_size,omitempty"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

type notionParent struct {
	Type         string `json:"type"`
	DataSourceID string `json:"data_source_id,omitempty"`
	DatabaseID   string `json:"database_id,omitempty"`
}

type notionCreate struct {
	Parent     notionParent             `json:"parent"`
	Properties map[string]notionPropOut `json:"properties"`
}

type notionPatch struct {
	Properties map[string]notionPropOut `json:"properties,omitempty"`
	Archived   *bool                    `json:"archived,omitempty"`
}

type notionPage struct {
	ID          string                  `json:"id"`
	CreatedTime time.Time               `json:"created_time"`
	Archived    bool                    `json:"archived"`
	InTrash     bool                    `json:"in_trash"`
	Parent      notionParent            `json:"parent"`
	Properties  map[string]notionPropIn `json:"properties"`
}

type notionText struct {
	PlainText string `json:"plain_text,omitempty"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type notionDate struct {
	Start string `json:"start"`
}

type notionSelect struct {
	Name string `json:"name"`
}

type notionRef struct {
	ID string `json:"id"`
}

// notionPropIn is a page property as returned by the API.
type notionPropIn struct {
	Type     string        `json:"type"`
	Title    []notionText  `json:"title"`
	RichText []notionText  `json:"rich_text"`
	Number   *float64      `json:"number"`
	Checkbox bool          `json:"checkbox"`
	Date     *notionDate   `json:"date"`
	Select   *notionSelect `json:"select"`
	Relation []notionRef   `json:"relation"`
}

// notionPropOut is a property value written to the API. Exactly one field
// is populated; the rest are omitted.
type notionPropOut map[string]any

type notionFilter map[string]any

func (p notionPage) record() Record {
	collection := p.Parent.DataSourceID
	if collection == "" {
		collection = p.Parent.DatabaseID
	}
	props := make(Properties, len(p.Properties))
	for name, raw := range p.Properties {
		if v, ok := raw.value(); ok {
			props[name] = v
		}
	}
	return Record{
		ID:         p.ID,
		Collection: collection,
		CreatedAt:  p.CreatedTime,
		Archived:   p.Archived || p.InTrash,
		Properties: props,
	}
}

// value converts an API property; unsupported types report false.
func (p notionPropIn) value() (Value, bool) {
	switch ValueType(p.Type) {
	case TypeTitle:
		return Title(joinText(p.Title)), true
	case TypeRichText:
		return RichText(joinText(p.RichText)), true
	case TypeNumber:
		return Value{Type: TypeNumber, Number: p.Number}, true
	case TypeCheckbox:
		return Checkbox(p.Checkbox), true
	case TypeDate:
		v := Value{Type: TypeDate}
		if p.Date != nil {
			if t, ok := parseNotionDate(p.Date.Start); ok {
				v.Date = &t
			}
		}
		return v, true
	case TypeSelect:
		if p.Select == nil {
			return Select(""), true
		}
		return Select(p.Select.Name), true
	case TypeRelation:
		ids := make([]string, 0, len(p.Relation))
		for _, r := range p.Relation {
			ids = append(ids, r.ID)
		}
		return Relation(ids...), true
	}
	return Value{}, false
}

func joinText(parts []notionText) string {
	var b strings.Builder
	for _, t := range parts {
		switch {
		case t.PlainText != "":
			b.WriteString(t.PlainText)
		case t.Text != nil:
			b.WriteString(t.Text.Content)
		}
	}
	return b.String()
}

// parseNotionDate accepts both date-only and full timestamp starts.
func parseNotionDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func encodeProperties(props Properties) map[string]notionPropOut {
	out := make(map[string]notionPropOut, len(props))
	for name, v := range props {
		out[name] = encodeValue(v)
	}
	return out
}

func encodeValue(v Value) notionPropOut {
	switch v.Type {
	case TypeTitle:
		return notionPropOut{"title": textContent(v.Text)}
	case TypeRichText:
		return notionPropOut{"rich_text": textContent(v.Text)}
	case TypeNumber:
		return notionPropOut{"number": v.Number}
	case TypeCheckbox:
		return notionPropOut{"checkbox": v.Checkbox}
	case TypeDate:
		if v.Date == nil {
			return notionPropOut{"date": nil}
		}
		return notionPropOut{"date": notionDate{Start: v.Date.Format(time.RFC3339)}}
	case TypeSelect:
		if v.Text == "" {
			return notionPropOut{"select": nil}
		}
		return notionPropOut{"select": notionSelect{Name: v.Text}}
	case TypeRelation:
		refs := make([]notionRef, 0, len(v.Relation))
		for _, id := range v.Relation {
			refs = append(refs, notionRef{ID: id})
		}
		return notionPropOut{"relation": refs}
	}
	return notionPropOut{}
}

// maxTextRunes is the API's limit on the content of one rich text segment.
const maxTextRunes = 2000

// textContent splits s into segments of at most maxTextRunes runes.
func textContent(s string) []map[string]any {
	segment := func(c string) map[string]any {
		return map[string]any{"text": map[string]string{"content": c}}
	}
	runes := []rune(s)
	if len(runes) <= maxTextRunes {
		return []map[string]any{segment(s)}
	}
	out := make([]map[string]any, 0, (len(runes)+maxTextRunes-1)/maxTextRunes)
	for len(runes) > 0 {
		n := min(len(runes), maxTextRunes)
		out = append(out, segment(string(runes[:n])))
		runes = runes[n:]
	}
	return out
}

func encodeFilter(f Filter) notionFilter {
	switch f.Op {
	case OpRelationContains:
		return notionFilter{"property": f.Property, "relation": map[string]string{"contains": f.ID}}
	case OpDateOnOrAfter:
		return notionFilter{"property": f.Property, "date": map[string]string{"on_or_after": f.Date.Format(time.RFC3339)}}
	case OpCheckboxEquals:
		return notionFilter{"property": f.Property, "checkbox": map[string]bool{"equals": f.Bool}}
	case OpAnd:
		subs := make([]notionFilter, 0, len(f.And))
		for _, sub := range f.And {
			subs = append(subs, encodeFilter(sub))
		}
		return notionFilter{"and": subs}
	}
	return notionFilter{}
}
