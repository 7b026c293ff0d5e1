package models

// IngredientList is the ordered list of ingredient names read from a label.
type IngredientList struct {
	Ingredients []string `json:"ingredients"`
}

// IngredientDetail explains a single ingredient. All five fields are required.
type IngredientDetail struct {
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Nutrition   string `json:"nutrition"`
	Reason      string `json:"reason"`
	Impact      string `json:"impact"`
}

// DetailFields lists the IngredientDetail JSON fields in display order.
var DetailFields = []string{"description", "usage", "nutrition", "reason", "impact"}

// Field returns the value of a detail field by its JSON name.
func (d IngredientDetail) Field(name string) string {
	switch name {
	case "description":
		return d.Description
	case "usage":
		return d.Usage
	case "nutrition":
		return d.Nutrition
	case "reason":
		return d.Reason
	case "impact":
		return d.Impact
	}
	return ""
}
