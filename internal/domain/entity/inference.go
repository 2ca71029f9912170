package entity

type InferenceStage string

const (
	StageDescription InferenceStage = "description"
	StageTemplate    InferenceStage = "template"
)

// InferenceResult is the text produced by one model call, or the reason it is missing.
type InferenceResult struct {
	Text      string `json:"text" bson:"text"`
	Completed bool   `json:"completed" bson:"completed"`
	Error     string `json:"error,omitempty" bson:"error,omitempty"`
}

func (r *InferenceResult) Succeed(text string) {
	r.Text = text
	r.Completed = true
	r.Error = ""
}

func (r *InferenceResult) Fail(err error) {
	r.Text = ""
	r.Completed = false
	r.Error = err.Error()
}
