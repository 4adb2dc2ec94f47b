package model

import "time"

// Item represents a physical decoration, accessory, or light in the catalog.
// Items are individually tracked; ports are derived from the male/female end
// counts rather than stored separately.
type Item struct {
	ID         string     `json:"id"`
	ShortName  string     `json:"short_name"`
	Class      string     `json:"class"`
	ClassType  string     `json:"class_type"`
	FemaleEnds int        `json:"female_ends"`
	MaleEnds   int        `json:"male_ends"`
	PowerInlet bool       `json:"power_inlet"`
	Watts      int        `json:"watts,omitempty"`
	Amps       float64    `json:"amps,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	ImageMime  string     `json:"image_mime,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Item statuses.
const (
	ItemStatusActive  = "active"
	ItemStatusDamaged = "damaged"
	ItemStatusRetired = "retired"
)

// Item classes.
const (
	ClassDecoration = "Decoration"
	ClassAccessory  = "Accessory"
	ClassLight      = "Light"
)

// Class types that get special handling in the builder.
const (
	TypeSpotLight  = "Spot Light"
	TypeInflatable = "Inflatable"
	TypeStaticProp = "Static Prop"
)

// ClassHierarchy maps each class to its class types.
var ClassHierarchy = map[string][]string{
	ClassDecoration: {"Inflatable", "Static Prop", "Animatronic"},
	ClassAccessory:  {"Plug", "Cord", "Adapter"},
	ClassLight:      {"String Light", "Spot Light"},
}

// Classes lists the classes in display order.
var Classes = []string{ClassDecoration, ClassAccessory, ClassLight}

// TypesForClass returns the class types belonging to a class.
func TypesForClass(class string) []string {
	return ClassHierarchy[class]
}

// ValidClassType reports whether classType belongs to class.
func ValidClassType(class, classType string) bool {
	for _, t := range ClassHierarchy[class] {
		if t == classType {
			return true
		}
	}
	return false
}

// Illuminatable reports whether items of this class type can be the target
// of a spotlight's illuminates list.
func Illuminatable(classType string) bool {
	return classType == TypeInflatable || classType == TypeStaticProp
}
