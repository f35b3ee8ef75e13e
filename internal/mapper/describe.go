package mapper

import "github.com/jaxbulsara/NeoAlchemy/ogm"

// ClassInfo describes a class for clients.
type ClassInfo struct {
	Name   string      `json:"name"`
	Labels []string    `json:"labels"`
	Fields []FieldInfo `json:"fields"`
}

// FieldInfo describes a declared field.
type FieldInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Type     string   `json:"type"`
	Backref  string   `json:"backref,omitempty"`
	Restrict []string `json:"restrict,omitempty"`
	ReadOnly bool     `json:"read_only"`
}

// Describe lists the mapper's classes and their fields.
func (m *Mapper) Describe() []ClassInfo { return Describe(m.schema) }

// Describe lists the classes of s and their fields in declaration order.
func Describe(s *ogm.Schema) []ClassInfo {
	var out []ClassInfo
	for _, c := range s.Classes() {
		info := ClassInfo{Name: c.Name(), Labels: c.Labels(), Fields: []FieldInfo{}}
		for _, name := range c.Fields() {
			f, _ := c.Field(name)
			info.Fields = append(info.Fields, describeField(name, f))
		}
		out = append(out, info)
	}
	return out
}

func describeField(name string, f ogm.Field) FieldInfo {
	switch f := f.(type) {
	case *ogm.Relation:
		return FieldInfo{
			Name:     name,
			Kind:     f.Kind().String(),
			Type:     f.EdgeType(),
			Backref:  f.Backref(),
			Restrict: f.RestrictedLabels(),
			ReadOnly: true,
		}
	case *ogm.ManyToOne:
		return FieldInfo{
			Name:     name,
			Kind:     "many_to_one",
			Type:     f.Relation().EdgeType(),
			ReadOnly: true,
		}
	}
	return FieldInfo{Name: name, Kind: "field", ReadOnly: true}
}
