package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Program holds the schema definition for the Program entity. It mirrors the
// programs table created by the Postgres backend and drives migrations.
type Program struct {
	ent.Schema
}

// Fields of the Program.
func (Program) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("title").
			Default(""),
		field.String("subtitle").
			Default(""),
		field.Text("html").
			Default(""),
		field.Text("css").
			Default(""),
		field.Text("js").
			Default(""),
		field.String("icon_name").
			Default(""),
		field.Float("install_progress").
			Optional().
			Nillable(),
		field.Bool("llm_enabled").
			Default(false),
		field.Bool("scripting_enabled").
			Default(false),
	}
}
