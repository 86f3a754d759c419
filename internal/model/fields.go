package model

// NumFeatures is the arity every artifact must accept.
const NumFeatures = 11

// Field describes one sensor reading in the feature vector.
type Field struct {
	Key     string  // stable machine key, e.g. "soil_moisture"
	Name    string  // display name, e.g. "Soil Moisture"
	Unit    string  // display unit, may be empty
	Min     float64 // inclusive lower bound of the input surface
	Max     float64 // inclusive upper bound of the input surface
	Default float64 // documented default reading
}

// Label returns the display name with its unit, e.g. "Soil Moisture (%)".
func (f Field) Label() string {
	if f.Unit == "" {
		return f.Name
	}
	return f.Name + " (" + f.Unit + ")"
}

// Contains reports whether v lies within the field's declared bounds.
func (f Field) Contains(v float64) bool {
	return v >= f.Min && v <= f.Max
}

// Fields is the canonical feature order. Artifacts were trained on exactly
// this order; identity at the artifact boundary is positional.
var Fields = [NumFeatures]Field{
	{Key: "soil_moisture", Name: "Soil Moisture", Unit: "%", Min: 10.0, Max: 40.0, Default: 30.5},
	{Key: "ambient_temperature", Name: "Ambient Temperature", Unit: "°C", Min: 18.0, Max: 30.0, Default: 21.88},
	{Key: "soil_temperature", Name: "Soil Temperature", Unit: "°C", Min: 15.0, Max: 25.0, Default: 17.38},
	{Key: "humidity", Name: "Humidity", Unit: "%", Min: 40.0, Max: 70.0, Default: 53.64},
	{Key: "light_intensity", Name: "Light Intensity", Min: 200.0, Max: 1000.0, Default: 418.43},
	{Key: "soil_ph", Name: "Soil pH", Min: 5.5, Max: 7.5, Default: 6.92},
	{Key: "nitrogen_level", Name: "Nitrogen Level", Min: 10.0, Max: 50.0, Default: 28.99},
	{Key: "phosphorus_level", Name: "Phosphorus Level", Min: 10.0, Max: 50.0, Default: 25.16},
	{Key: "potassium_level", Name: "Potassium Level", Min: 10.0, Max: 50.0, Default: 36.05},
	{Key: "chlorophyll_content", Name: "Chlorophyll Content", Min: 20.0, Max: 50.0, Default: 43.32},
	{Key: "electrochemical_signal", Name: "Electrochemical Signal", Min: 0.0, Max: 2.0, Default: 1.3},
}

// FieldKeys returns the canonical keys in order.
func FieldKeys() []string {
	keys := make([]string, len(Fields))
	for i, f := range Fields {
		keys[i] = f.Key
	}
	return keys
}

// FieldIndex returns the canonical position of the field with the given key.
func FieldIndex(key string) (int, bool) {
	for i, f := range Fields {
		if f.Key == key {
			return i, true
		}
	}
	return -1, false
}
