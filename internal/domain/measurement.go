package domain

// BodyMeasurement is one snapshot of body weight and circumferences.
// Every numeric field is optional; absent fields are not stored.
type BodyMeasurement struct {
	ID         string   `bson:"_id" json:"id"`
	Date       string   `bson:"date" json:"date"`
	Weight     *float64 `bson:"weight,omitempty" json:"weight,omitempty"` // kg
	ArmLeft    *float64 `bson:"armLeft,omitempty" json:"armLeft,omitempty"`
	ArmRight   *float64 `bson:"armRight,omitempty" json:"armRight,omitempty"`
	Chest      *float64 `bson:"chest,omitempty" json:"chest,omitempty"`
	Waist      *float64 `bson:"waist,omitempty" json:"waist,omitempty"`
	Hips       *float64 `bson:"hips,omitempty" json:"hips,omitempty"`
	ThighLeft  *float64 `bson:"thighLeft,omitempty" json:"thighLeft,omitempty"`
	ThighRight *float64 `bson:"thighRight,omitempty" json:"thighRight,omitempty"`
	CalfLeft   *float64 `bson:"calfLeft,omitempty" json:"calfLeft,omitempty"`
	CalfRight  *float64 `bson:"calfRight,omitempty" json:"calfRight,omitempty"`
}

// Values returns the measurement fields keyed by their document name, skipping absent ones.
func (m *BodyMeasurement) Values() map[string]float64 {
	out := make(map[string]float64)
	for name, v := range map[string]*float64{
		"weight":     m.Weight,
		"armLeft":    m.ArmLeft,
		"armRight":   m.ArmRight,
		"chest":      m.Chest,
		"waist":      m.Waist,
		"hips":       m.Hips,
		"thighLeft":  m.ThighLeft,
		"thighRight": m.ThighRight,
		"calfLeft":   m.CalfLeft,
		"calfRight":  m.CalfRight,
	} {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}
