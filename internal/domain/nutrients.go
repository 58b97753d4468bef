package domain

// Nutrients holds the fixed nutrient set tracked per meal and per day.
// Core macro fields are always numeric. Micro fields are pointers: nil means
// "unknown", which is different from a known zero.
type Nutrients struct {
	Calories float64 `bson:"calories" json:"calories"`
	FatG     float64 `bson:"fat_g" json:"fat_g"`
	CarbsG   float64 `bson:"carbs_g" json:"carbs_g"`
	ProteinG float64 `bson:"protein_g" json:"protein_g"`

	FiberG      *float64 `bson:"fiber_g" json:"fiber_g"`
	PotassiumMg *float64 `bson:"potassium_mg" json:"potassium_mg"`
	MagnesiumMg *float64 `bson:"magnesium_mg" json:"magnesium_mg"`
	Omega3Mg    *float64 `bson:"omega3_mg" json:"omega3_mg"`
	CalciumMg   *float64 `bson:"calcium_mg" json:"calcium_mg"`
	IronMg      *float64 `bson:"iron_mg" json:"iron_mg"`
}

// MicroField names one of the nullable micronutrient fields.
type MicroField string

const (
	MicroFiberG      MicroField = "fiber_g"
	MicroPotassiumMg MicroField = "potassium_mg"
	MicroMagnesiumMg MicroField = "magnesium_mg"
	MicroOmega3Mg    MicroField = "omega3_mg"
	MicroCalciumMg   MicroField = "calcium_mg"
	MicroIronMg      MicroField = "iron_mg"
)

// MicroFields lists the micro fields in their canonical order.
var MicroFields = []MicroField{
	MicroFiberG,
	MicroPotassiumMg,
	MicroMagnesiumMg,
	MicroOmega3Mg,
	MicroCalciumMg,
	MicroIronMg,
}

// Micro returns a pointer to the storage slot of the given micro field.
func (n *Nutrients) Micro(field MicroField) **float64 {
	switch field {
	case MicroFiberG:
		return &n.FiberG
	case MicroPotassiumMg:
		return &n.PotassiumMg
	case MicroMagnesiumMg:
		return &n.MagnesiumMg
	case MicroOmega3Mg:
		return &n.Omega3Mg
	case MicroCalciumMg:
		return &n.CalciumMg
	case MicroIronMg:
		return &n.IronMg
	}
	return nil
}

// Float is a small helper for building nutrient literals.
func Float(v float64) *float64 {
	return &v
}
