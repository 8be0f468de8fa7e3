package artifact

// UseCase mined from a "### UC-nnn" section
type UseCase struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	Actor            string   `json:"actor" yaml:"actor"`
	Preconditions    []string `json:"preconditions" yaml:"preconditions"`
	MainFlow         []string `json:"main_flow" yaml:"main_flow"`
	AlternativeFlows []string `json:"alternative_flows" yaml:"alternative_flows"`
	Postconditions   []string `json:"postconditions" yaml:"postconditions"`
	Priority         string   `json:"priority" yaml:"priority"`
}

// KPI mined from a "**KPI n:**" line
type KPI struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Target      string `json:"target" yaml:"target"`
	Metric      string `json:"metric" yaml:"metric"`
	Category    string `json:"category" yaml:"category"`
}

// UserStory mined from "As a X, I want Y so that Z"
type UserStory struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	AsA                string   `json:"as_a" yaml:"as_a"`
	IWant              string   `json:"i_want" yaml:"i_want"`
	SoThat             string   `json:"so_that" yaml:"so_that"`
	AcceptanceCriteria []string `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Priority           string   `json:"priority" yaml:"priority"`
}

// Artifacts groups everything extracted from one document
type Artifacts struct {
	UseCases    []UseCase   `json:"use_cases"`
	UserStories []UserStory `json:"user_stories"`
	KPIs        []KPI       `json:"kpis"`
}

// Empty reports whether nothing was found
func (a Artifacts) Empty() bool {
	return len(a.UseCases) == 0 && len(a.UserStories) == 0 && len(a.KPIs) == 0
}

const (
	DefaultUseCasePriority   = "High"
	DefaultUserStoryPriority = "Medium"
	DefaultKPICategory       = "Business"
	UnspecifiedTarget        = "TBD"
)
