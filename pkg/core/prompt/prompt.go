// Package prompt provides the prompt library used to summarize statement
// tables. Built-in prompts can be overridden by Hjson/JSON files at runtime,
// making it easy to update prompts without code changes.
package prompt

// Response formats a prompt can ask for.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID             string   `json:"id"`                   // Unique identifier (e.g., "summary.balance_sheet")
	Name           string   `json:"name"`                 // Human-readable name
	Category       string   `json:"category"`             // Category derived from the folder when loaded from disk
	Description    string   `json:"description"`          // Description of prompt purpose
	SystemPrompt   string   `json:"system_prompt"`        // The system prompt content
	UserPromptTmpl string   `json:"user_prompt_template"` // Go template for user prompt
	Format         string   `json:"format"`               // csv (default) or json
	ExpectedRows   []string `json:"expected_rows"`        // Row labels the answer must contain
	Version        string   `json:"version"`              // Version for tracking changes
}

// ResponseFormat returns Format with the csv default applied.
func (pt *PromptTemplate) ResponseFormat() string {
	if pt.Format == "" {
		return FormatCSV
	}
	return pt.Format
}

// PromptExecutionContext holds runtime values for prompt execution
type PromptExecutionContext struct {
	Variables map[string]interface{} // Key-value pairs for template substitution
}

// NewContext creates a new execution context
func NewContext() *PromptExecutionContext {
	return &PromptExecutionContext{
		Variables: make(map[string]interface{}),
	}
}

// Set adds a variable to the context
func (c *PromptExecutionContext) Set(key string, value interface{}) *PromptExecutionContext {
	c.Variables[key] = value
	return c
}
