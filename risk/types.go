package risk

// Field names a clinical feature by its wire name.
type Field string

const (
	Age      Field = "age"
	Sex      Field = "sex"
	CP       Field = "cp"
	Trestbps Field = "trestbps"
	Chol     Field = "chol"
	FBS      Field = "fbs"
	RestECG  Field = "restecg"
	Thalach  Field = "thalach"
	Exang    Field = "exang"
	Oldpeak  Field = "oldpeak"
	Slope    Field = "slope"
	CA       Field = "ca"
	Thal     Field = "thal"
)

// Fields lists every feature in canonical order.
var Fields = []Field{Age, Sex, CP, Trestbps, Chol, FBS, RestECG, Thalach, Exang, Oldpeak, Slope, CA, Thal}

// PatientFeatures is the flat feature record submitted for one assessment.
// Field order matches Fields.
type PatientFeatures struct {
	Age      Value `json:"age" yaml:"age" validate:"required"`
	Sex      Value `json:"sex" yaml:"sex" validate:"required"`
	CP       Value `json:"cp" yaml:"cp" validate:"required"`
	Trestbps Value `json:"trestbps" yaml:"trestbps" validate:"required"`
	Chol     Value `json:"chol" yaml:"chol" validate:"required"`
	FBS      Value `json:"fbs" yaml:"fbs" validate:"required"`
	RestECG  Value `json:"restecg" yaml:"restecg" validate:"required"`
	Thalach  Value `json:"thalach" yaml:"thalach" validate:"required"`
	Exang    Value `json:"exang" yaml:"exang" validate:"required"`
	Oldpeak  Value `json:"oldpeak" yaml:"oldpeak" validate:"required"`
	Slope    Value `json:"slope" yaml:"slope" validate:"required"`
	CA       Value `json:"ca" yaml:"ca" validate:"required"`
	Thal     Value `json:"thal" yaml:"thal" validate:"required"`
}

func (f *PatientFeatures) ref(field Field) *Value {
	switch field {
	case Age:
		return &f.Age
	case Sex:
		return &f.Sex
	case CP:
		return &f.CP
	case Trestbps:
		return &f.Trestbps
	case Chol:
		return &f.Chol
	case FBS:
		return &f.FBS
	case RestECG:
		return &f.RestECG
	case Thalach:
		return &f.Thalach
	case Exang:
		return &f.Exang
	case Oldpeak:
		return &f.Oldpeak
	case Slope:
		return &f.Slope
	case CA:
		return &f.CA
	case Thal:
		return &f.Thal
	}
	return nil
}

// Get returns the value of field; unknown fields read as absent.
func (f PatientFeatures) Get(field Field) Value {
	if v := f.ref(field); v != nil {
		return *v
	}
	return Value{}
}

// Set assigns field and reports whether the field is known.
func (f *PatientFeatures) Set(field Field, v Value) bool {
	ref := f.ref(field)
	if ref == nil {
		return false
	}
	*ref = v
	return true
}

// Level is the categorical risk band.
type Level string

const (
	Low      Level = "Low"
	Moderate Level = "Moderate"
	High     Level = "High"
	VeryHigh Level = "Very High"
)

// Assessment is the result returned for one feature record.
type Assessment struct {
	Prediction  int     `json:"prediction" yaml:"prediction"`
	Probability float64 `json:"probability" yaml:"probability"`
	RiskLevel   Level   `json:"risk_level" yaml:"risk_level"`
	Confidence  string  `json:"confidence" yaml:"confidence"`
	RiskScore   *int    `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`
	Demo        bool    `json:"demo,omitempty" yaml:"demo,omitempty"`
}
