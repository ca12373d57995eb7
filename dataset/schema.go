package dataset

// ColumnSchema describes one column of a dataset.
type ColumnSchema struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"dtype"`
	Missing int    `json:"missing"`
	Example any    `json:"example"`
}

// Schema lists every column with its kind, missing count and first non-missing value.
func (d *Dataset) Schema() []ColumnSchema {
	out := make([]ColumnSchema, 0, len(d.cols))
	for _, c := range d.cols {
		cs := ColumnSchema{
			Name: c.Name,
			Kind: c.Kind,
		}
		for _, v := range c.Values {
			if IsMissing(v) {
				cs.Missing++
				continue
			}
			if cs.Example == nil {
				cs.Example = v
			}
		}
		out = append(out, cs)
	}
	return out
}
