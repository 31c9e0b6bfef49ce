package domain

// Career is a career path entry with the rules that make it a recommendation.
type Career struct {
	ID              string              `json:"id" yaml:"id"`
	Title           string              `json:"title" yaml:"title"`
	Match           int                 `json:"match" yaml:"match"`
	Description     string              `json:"description" yaml:"description"`
	Skills          []string            `json:"skills" yaml:"skills"`
	Education       []string            `json:"education" yaml:"education"`
	SalaryRange     string              `json:"salaryRange" yaml:"salary_range"`
	Growth          string              `json:"growth" yaml:"growth"`
	WorkEnvironment string              `json:"workEnvironment" yaml:"work_environment"`
	TimeToEntry     string              `json:"timeToEntry" yaml:"time_to_entry"`
	Triggers        map[string][]string `json:"-" yaml:"triggers"`
	Streams         []string            `json:"-" yaml:"streams"`
	Fallback        bool                `json:"-" yaml:"fallback"`
}

// LearningStep is one stage of a learning path.
type LearningStep struct {
	Step        int      `json:"step" yaml:"step"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Timeframe   string   `json:"timeframe" yaml:"timeframe"`
	Resources   []string `json:"resources" yaml:"resources"`
}

// Pathway is a curated learning pathway.
type Pathway struct {
	ID         string         `json:"id" yaml:"id"`
	Title      string         `json:"title" yaml:"title"`
	Level      string         `json:"level" yaml:"level"`
	Duration   string         `json:"duration" yaml:"duration"`
	Streams    []string       `json:"streams" yaml:"streams"`
	Steps      []LearningStep `json:"steps" yaml:"steps"`
	Difficulty string         `json:"difficulty" yaml:"difficulty"`
}

// Mentor is a mentor profile available for matching.
type Mentor struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Title        string   `json:"title" yaml:"title"`
	Company      string   `json:"company" yaml:"company"`
	Bio          string   `json:"bio" yaml:"bio"`
	Expertise    []string `json:"expertise" yaml:"expertise"`
	Experience   string   `json:"experience" yaml:"experience"`
	Rating       float64  `json:"rating" yaml:"rating"`
	Reviews      int      `json:"reviews" yaml:"reviews"`
	Availability string   `json:"availability" yaml:"availability"`
	Location     string   `json:"location" yaml:"location"`
	Languages    []string `json:"languages" yaml:"languages"`
	MatchScore   int      `json:"matchScore" yaml:"match_score"`
	Verified     bool     `json:"verified" yaml:"verified"`
}

// QuickQuestion is a suggested prompt for the mentor chat.
type QuickQuestion struct {
	ID       string `json:"id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	Category string `json:"category" yaml:"category"`
}

// Trend is an industry trend data point for dashboards.
type Trend struct {
	Industry  string   `json:"industry" yaml:"industry"`
	Growth    float64  `json:"growth" yaml:"growth"`
	Demand    string   `json:"demand" yaml:"demand"`
	MedianPay string   `json:"medianPay" yaml:"median_pay"`
	TopSkills []string `json:"topSkills" yaml:"top_skills"`
	Outlook   string   `json:"outlook" yaml:"outlook"`
}

// Skill is a skill with the learner's current and target proficiency (0-100).
type Skill struct {
	Name          string `json:"name" yaml:"name"`
	Category      string `json:"category" yaml:"category"`
	CurrentLevel  int    `json:"currentLevel" yaml:"current_level"`
	RequiredLevel int    `json:"requiredLevel" yaml:"required_level"`
	Importance    string `json:"importance" yaml:"importance"`
}

// Gap returns how far the current level is below the required level.
func (s Skill) Gap() int {
	return s.RequiredLevel - s.CurrentLevel
}
