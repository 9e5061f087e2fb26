package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"natours/src/types"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Apply adds the filters, ordering, projection and pagination of spec to tx,
// which must already carry a model. Fields are addressed by their JSON name;
// unknown or hidden fields are ignored.
func Apply(tx *gorm.DB, spec Spec) (*gorm.DB, error) {
	if err := tx.Statement.Parse(tx.Statement.Model); err != nil {
		return nil, err
	}
	sch := tx.Statement.Schema
	fields := jsonFields(sch)

	for _, f := range spec.Filters {
		field, ok := fields[f.Field]
		if !ok || !filterable(field) {
			continue
		}
		vals := make([]any, 0, len(f.Values))
		for _, raw := range f.Values {
			v, err := cast(field, raw)
			if err != nil {
				return nil, &types.CastError{Path: f.Field, Value: raw}
			}
			vals = append(vals, v)
		}
		col := tx.Statement.Quote(field.DBName)
		if f.Op == opIn {
			tx = tx.Where(fmt.Sprintf("%s IN ?", col), vals)
			continue
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", col, f.Op), vals[0])
	}

	ordered := false
	for _, s := range spec.Sort {
		field, ok := fields[s.Field]
		if !ok || field.DBName == "" {
			continue
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: field.DBName}, Desc: s.Desc})
		ordered = true
	}
	if !ordered && sch.PrioritizedPrimaryField != nil {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: sch.PrioritizedPrimaryField.DBName}})
	}

	if len(spec.Fields) > 0 {
		cols := make([]string, 0, len(spec.Fields)+1)
		if sch.PrioritizedPrimaryField != nil {
			cols = append(cols, sch.PrioritizedPrimaryField.DBName)
		}
		for _, name := range spec.Fields {
			if field, ok := fields[name]; ok && field.DBName != "" {
				cols = append(cols, field.DBName)
			}
		}
		tx = tx.Select(cols)
	}
	if len(spec.Omit) > 0 {
		cols := make([]string, 0, len(spec.Omit))
		for _, name := range spec.Omit {
			if field, ok := fields[name]; ok && field.DBName != "" && !field.PrimaryKey {
				cols = append(cols, field.DBName)
			}
		}
		tx = tx.Omit(cols...)
	}

	if spec.Skip > 0 {
		tx = tx.Offset(spec.Skip)
	}
	if spec.Limit > 0 {
		tx = tx.Limit(spec.Limit)
	}
	return tx, nil
}

// Project strips every key the projection of spec leaves out from the JSON
// encoding of docs. The id is always kept.
func Project(docs any, spec Spec) (any, error) {
	if len(spec.Fields) == 0 && len(spec.Omit) == 0 {
		return docs, nil
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	keep := map[string]bool{"id": true}
	for _, f := range spec.Fields {
		keep[f] = true
	}
	for _, item := range items {
		if len(spec.Fields) > 0 {
			for k := range item {
				if !keep[k] {
					delete(item, k)
				}
			}
		}
		for _, f := range spec.Omit {
			if f != "id" {
				delete(item, f)
			}
		}
	}
	return items, nil
}

func jsonFields(sch *schema.Schema) map[string]*schema.Field {
	fields := make(map[string]*schema.Field, len(sch.Fields))
	for _, f := range sch.Fields {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = f
	}
	return fields
}

func filterable(f *schema.Field) bool {
	if f.DBName == "" || !f.Readable {
		return false
	}
	switch f.DataType {
	case schema.Bool, schema.Int, schema.Uint, schema.Float, schema.String, schema.Time:
		return true
	}
	return false
}

func cast(f *schema.Field, raw string) (any, error) {
	switch f.DataType {
	case schema.Bool:
		return strconv.ParseBool(raw)
	case schema.Int:
		return strconv.ParseInt(raw, 10, 64)
	case schema.Uint:
		return strconv.ParseUint(raw, 10, 64)
	case schema.Float:
		return strconv.ParseFloat(raw, 64)
	case schema.Time:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid time %q", raw)
	}
	return raw, nil
}
