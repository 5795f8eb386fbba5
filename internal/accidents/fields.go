package accidents

// Field is a recognized column of the accident dataset. The string value is
// the CSV header name.
type Field string

const (
	Weather            Field = "Weather"
	RoadType           Field = "Road_Type"
	TimeOfDay          Field = "Time_of_Day"
	VehicleType        Field = "Vehicle_Type"
	RoadCondition      Field = "Road_Condition"
	RoadLightCondition Field = "Road_Light_Condition"
	AccidentSeverity   Field = "Accident_Severity"

	DriverAge        Field = "Driver_Age"
	SpeedLimit       Field = "Speed_Limit"
	Accident         Field = "Accident"
	DriverAlcohol    Field = "Driver_Alcohol"
	TrafficDensity   Field = "Traffic_Density"
	NumberOfVehicles Field = "Number_of_Vehicles"
	DriverExperience Field = "Driver_Experience"
)

// Kind distinguishes text columns from numeric ones.
type Kind int

const (
	Categorical Kind = iota
	Numerical
)

type fieldSpec struct {
	kind     Kind
	required bool
	// param is the query parameter that filters on this field; empty when the
	// field is not filterable.
	param string
	text  func(*Record) *string
	num   func(*Record) *Numeric
}

// fieldSpecs is the only place where column names map onto Record members.
var fieldSpecs = map[Field]fieldSpec{
	Weather:            {kind: Categorical, required: true, param: "weather", text: func(r *Record) *string { return &r.Weather }},
	RoadType:           {kind: Categorical, required: true, param: "road_type", text: func(r *Record) *string { return &r.RoadType }},
	TimeOfDay:          {kind: Categorical, required: true, param: "time_of_day", text: func(r *Record) *string { return &r.TimeOfDay }},
	VehicleType:        {kind: Categorical, required: true, param: "vehicle_type", text: func(r *Record) *string { return &r.VehicleType }},
	RoadCondition:      {kind: Categorical, text: func(r *Record) *string { return &r.RoadCondition }},
	RoadLightCondition: {kind: Categorical, text: func(r *Record) *string { return &r.RoadLightCondition }},
	AccidentSeverity:   {kind: Categorical, text: func(r *Record) *string { return &r.AccidentSeverity }},

	DriverAge:        {kind: Numerical, required: true, num: func(r *Record) *Numeric { return &r.DriverAge }},
	SpeedLimit:       {kind: Numerical, required: true, num: func(r *Record) *Numeric { return &r.SpeedLimit }},
	Accident:         {kind: Numerical, required: true, num: func(r *Record) *Numeric { return &r.Accident }},
	DriverAlcohol:    {kind: Numerical, num: func(r *Record) *Numeric { return &r.DriverAlcohol }},
	TrafficDensity:   {kind: Numerical, num: func(r *Record) *Numeric { return &r.TrafficDensity }},
	NumberOfVehicles: {kind: Numerical, num: func(r *Record) *Numeric { return &r.NumberOfVehicles }},
	DriverExperience: {kind: Numerical, num: func(r *Record) *Numeric { return &r.DriverExperience }},
}

// FilterFields lists the filterable fields in the order filters are applied
// and echoed back.
var FilterFields = []Field{Weather, RoadType, TimeOfDay, VehicleType}

// RequiredFields lists the columns a source must provide.
func RequiredFields() []Field {
	var out []Field
	for _, f := range allFields {
		if fieldSpecs[f].required {
			out = append(out, f)
		}
	}
	return out
}

// allFields is fieldSpecs in a stable order.
var allFields = []Field{
	Weather, RoadType, TimeOfDay, VehicleType, RoadCondition, RoadLightCondition, AccidentSeverity,
	DriverAge, SpeedLimit, Accident, DriverAlcohol, TrafficDensity, NumberOfVehicles, DriverExperience,
}

// Known reports whether f is a recognized column.
func (f Field) Known() bool {
	_, ok := fieldSpecs[f]
	return ok
}

// Kind returns the column kind. Unknown fields report Categorical.
func (f Field) Kind() Kind {
	return fieldSpecs[f].kind
}

// Param returns the query parameter name for a filterable field, or "".
func (f Field) Param() string {
	return fieldSpecs[f].param
}
